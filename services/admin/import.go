package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"storefront/services/catalog"
)

// CatalogFile is the YAML document read by Import.
//
//	products:
//	  - name: Guia de Redes
//	    description: Um guia completo de redes
//	    price_in_cents: 4990
//	    file: files/guia.pdf
//	    image: images/guia.png
//	    available: true
type CatalogFile struct {
	Products []CatalogEntry `yaml:"products"`
}

// CatalogEntry is one product of a CatalogFile. File and Image are relative to the
// directory holding the catalog file.
type CatalogEntry struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	PriceInCents int64  `yaml:"price_in_cents"`
	File         string `yaml:"file"`
	Image        string `yaml:"image"`
	Available    bool   `yaml:"available"`
}

// DecodeCatalog parses a catalog file, rejecting unknown keys.
func DecodeCatalog(r io.Reader) (CatalogFile, error) {
	var doc CatalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return CatalogFile{}, errors.New("catalog file is empty")
		}
		return CatalogFile{}, fmt.Errorf("decode catalog: %w", err)
	}
	if len(doc.Products) == 0 {
		return CatalogFile{}, errors.New("catalog file lists no products")
	}
	return doc, nil
}

// Import registers every entry of doc in order and stops at the first failure.
// Products registered before the failure are returned alongside the error.
func (r *Registrar) Import(ctx context.Context, doc CatalogFile, baseDir string) ([]catalog.Product, error) {
	created := make([]catalog.Product, 0, len(doc.Products))
	for i, entry := range doc.Products {
		product, err := r.importEntry(ctx, entry, baseDir)
		if err != nil {
			return created, fmt.Errorf("product %d (%q): %w", i+1, entry.Name, err)
		}
		created = append(created, product)
	}
	return created, nil
}

func (r *Registrar) importEntry(ctx context.Context, entry CatalogEntry, baseDir string) (catalog.Product, error) {
	in := NewProduct{
		Name:         entry.Name,
		Description:  entry.Description,
		PriceInCents: entry.PriceInCents,
		Available:    entry.Available,
	}

	if entry.File != "" {
		file, up, err := OpenUpload(filepath.Join(baseDir, entry.File))
		if err != nil {
			return catalog.Product{}, err
		}
		defer file.Close()
		in.File = up
	}
	if entry.Image != "" {
		file, up, err := OpenUpload(filepath.Join(baseDir, entry.Image))
		if err != nil {
			return catalog.Product{}, err
		}
		defer file.Close()
		in.Image = up
	}

	return r.Add(ctx, in)
}

// OpenUpload opens the local file at path for registration. The caller closes the
// returned file.
func OpenUpload(path string) (*os.File, *Upload, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, nil, fmt.Errorf("%s is a directory", path)
	}
	return file, &Upload{Name: filepath.Base(path), Size: info.Size(), Body: file}, nil
}
