package admin

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"storefront/pkg/blob"
	"storefront/services/catalog"
	"storefront/services/models"
	"storefront/services/models/modelstest"
)

type registrarFixture struct {
	db        *gorm.DB
	root      string
	registrar *Registrar
	files     *blob.FSStore
	products  *catalog.GormRepository
}

func newRegistrarFixture(t *testing.T) registrarFixture {
	t.Helper()

	db := modelstest.NewDB(t)
	root := t.TempDir()
	files, err := blob.NewFSStore(root)
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}
	products, err := catalog.NewGormRepository(db)
	if err != nil {
		t.Fatalf("NewGormRepository() error = %v", err)
	}
	registrar, err := NewRegistrar(products, files, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistrar() error = %v", err)
	}
	return registrarFixture{db: db, root: root, registrar: registrar, files: files, products: products}
}

func upload(name, content string) *Upload {
	return &Upload{Name: name, Size: int64(len(content)), Body: strings.NewReader(content)}
}

func validProduct() NewProduct {
	return NewProduct{
		Name:         "Guia de Redes",
		Description:  "Um guia completo de redes",
		PriceInCents: 4990,
		File:         upload("Guia Prático.pdf", "%PDF-1.4 guia"),
	}
}

func readBlob(t *testing.T, files blob.Store, key string) string {
	t.Helper()
	rc, _, err := files.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %q: %v", key, err)
	}
	return string(data)
}

func TestRegistrarAdd(t *testing.T) {
	f := newRegistrarFixture(t)
	ctx := context.Background()

	in := validProduct()
	in.Name = "  Guia de Redes  "
	in.Image = upload("capa.PNG", "png-bytes")

	product, err := f.registrar.Add(ctx, in)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if product.Name != "Guia de Redes" {
		t.Fatalf("Name = %q, want trimmed", product.Name)
	}
	if product.IsAvailableForPurchase {
		t.Fatalf("IsAvailableForPurchase = true, want false by default")
	}
	if !strings.HasPrefix(product.FilePath, "products/file_") || !strings.HasSuffix(product.FilePath, "-guia_pratico.pdf") {
		t.Fatalf("FilePath = %q, want products/file_<uuid>-guia_pratico.pdf", product.FilePath)
	}
	if !strings.HasPrefix(product.ImagePath, "/products/img_") || !strings.HasSuffix(product.ImagePath, "-capa.png") {
		t.Fatalf("ImagePath = %q, want /products/img_<uuid>-capa.png", product.ImagePath)
	}
	if got := readBlob(t, f.files, product.FilePath); got != "%PDF-1.4 guia" {
		t.Fatalf("stored file = %q", got)
	}
	if got := readBlob(t, f.files, strings.TrimPrefix(product.ImagePath, "/")); got != "png-bytes" {
		t.Fatalf("stored image = %q", got)
	}

	stored, err := f.products.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.FilePath != product.FilePath || stored.PriceInCents != 4990 {
		t.Fatalf("stored product = %+v", stored)
	}
}

func TestRegistrarAddAvailable(t *testing.T) {
	f := newRegistrarFixture(t)

	in := validProduct()
	in.Available = true
	product, err := f.registrar.Add(context.Background(), in)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !product.IsAvailableForPurchase {
		t.Fatalf("IsAvailableForPurchase = false, want true")
	}
}

func TestRegistrarAddValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*NewProduct)
		field string
		want  string
	}{
		{name: "short name", edit: func(p *NewProduct) { p.Name = "ab" }, field: "name", want: "Nome deve ter pelo menos 3 caracteres"},
		{name: "long name", edit: func(p *NewProduct) { p.Name = strings.Repeat("a", 101) }, field: "name", want: "Nome não pode exceder 100 caracteres"},
		{name: "name with symbols", edit: func(p *NewProduct) { p.Name = "Guia <script>" }, field: "name", want: "Nome contém caracteres inválidos"},
		{name: "short description", edit: func(p *NewProduct) { p.Description = "curta" }, field: "description", want: "Descrição deve ter pelo menos 10 caracteres"},
		{name: "cheap", edit: func(p *NewProduct) { p.PriceInCents = 99 }, field: "priceInCents", want: "Preço mínimo é R$ 1,00"},
		{name: "expensive", edit: func(p *NewProduct) { p.PriceInCents = 1000001 }, field: "priceInCents", want: "Preço máximo é R$ 10.000,00"},
		{name: "no file", edit: func(p *NewProduct) { p.File = nil }, field: "file", want: "Selecione um arquivo"},
		{name: "empty file", edit: func(p *NewProduct) { p.File = upload("guia.pdf", "") }, field: "file", want: "Arquivo está vazio"},
		{name: "big file", edit: func(p *NewProduct) {
			p.File = &Upload{Name: "guia.pdf", Size: MaxUploadSize + 1, Body: strings.NewReader("x")}
		}, field: "file", want: "Arquivo deve ter no máximo 5MB"},
		{name: "wrong file type", edit: func(p *NewProduct) { p.File = upload("guia.exe", "MZ") }, field: "file", want: "Formato de arquivo inválido. Use PDF, DOC, DOCX ou TXT"},
		{name: "wrong image type", edit: func(p *NewProduct) { p.Image = upload("capa.gif", "GIF89a") }, field: "image", want: "Formato de imagem inválido. Use JPEG, PNG ou WebP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrarFixture(t)
			in := validProduct()
			tt.edit(&in)

			_, err := f.registrar.Add(context.Background(), in)
			var ferrs FieldErrors
			if !errors.As(err, &ferrs) {
				t.Fatalf("Add() error = %v, want FieldErrors", err)
			}
			if got := ferrs[tt.field]; len(got) != 1 || got[0] != tt.want {
				t.Fatalf("errors[%q] = %v, want [%s]", tt.field, got, tt.want)
			}
		})
	}
}

func TestRegistrarAddRejectsDuplicateName(t *testing.T) {
	f := newRegistrarFixture(t)
	ctx := context.Background()

	if _, err := f.registrar.Add(ctx, validProduct()); err != nil {
		t.Fatalf("first Add() error = %v", err)
	}
	_, err := f.registrar.Add(ctx, validProduct())
	var ferrs FieldErrors
	if !errors.As(err, &ferrs) || len(ferrs["name"]) != 1 {
		t.Fatalf("second Add() error = %v, want name field error", err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "guia.pdf", want: "guia.pdf"},
		{in: "Guia Prático.PDF", want: "guia_pratico.pdf"},
		{in: "Programação & Redes (v2).docx", want: "programacao___redes__v2_.docx"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `C:\Users\ana\notas-aula.txt`, want: "notas-aula.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFileName(tt.in); got != tt.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeCatalog(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		doc, err := DecodeCatalog(strings.NewReader(`
products:
  - name: Guia de Redes
    description: Um guia completo de redes
    price_in_cents: 4990
    file: guia.pdf
    available: true
`))
		if err != nil {
			t.Fatalf("DecodeCatalog() error = %v", err)
		}
		if len(doc.Products) != 1 || doc.Products[0].PriceInCents != 4990 || !doc.Products[0].Available {
			t.Fatalf("DecodeCatalog() = %+v", doc)
		}
	})

	for name, input := range map[string]string{
		"empty":       "",
		"no products": "products: []\n",
		"unknown key": "products:\n  - name: x\n    price: 10\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeCatalog(strings.NewReader(input)); err == nil {
				t.Fatalf("DecodeCatalog() error = nil, want error")
			}
		})
	}
}

func TestRegistrarImport(t *testing.T) {
	f := newRegistrarFixture(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "files", "guia.pdf"), "%PDF-1.4 guia")
	writeFile(t, filepath.Join(dir, "files", "notas.txt"), "notas de aula")

	doc := CatalogFile{Products: []CatalogEntry{
		{Name: "Guia de Redes", Description: "Um guia completo de redes", PriceInCents: 4990, File: "files/guia.pdf", Available: true},
		{Name: "Notas de Aula", Description: "Notas completas do curso", PriceInCents: 1990, File: "files/notas.txt"},
		{Name: "Sem Arquivo", Description: "Produto sem arquivo algum", PriceInCents: 1990, File: "files/missing.pdf"},
	}}

	created, err := f.registrar.Import(context.Background(), doc, dir)
	if err == nil {
		t.Fatalf("Import() error = nil, want missing file error")
	}
	if !strings.Contains(err.Error(), "product 3") {
		t.Fatalf("Import() error = %v, want it to name product 3", err)
	}
	if len(created) != 2 {
		t.Fatalf("created = %d, want 2", len(created))
	}
	if got := readBlob(t, f.files, created[1].FilePath); got != "notas de aula" {
		t.Fatalf("stored file = %q", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func storedFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return files
}

func TestRegistrarAddRemovesBlobsWhenInsertFails(t *testing.T) {
	f := newRegistrarFixture(t)
	errInsert := errors.New("insert rejected")
	err := f.db.Callback().Create().Before("gorm:create").Register("test:reject_products", func(tx *gorm.DB) {
		if tx.Statement.Table == "products" {
			_ = tx.AddError(errInsert)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	in := validProduct()
	in.Image = upload("capa.png", "png-bytes")
	if _, err := f.registrar.Add(context.Background(), in); !errors.Is(err, errInsert) {
		t.Fatalf("Add() error = %v, want %v", err, errInsert)
	}

	if files := storedFiles(t, f.root); len(files) != 0 {
		t.Fatalf("blobs left behind: %v", files)
	}
	if n := modelstest.Count(t, f.db, &models.Product{}); n != 0 {
		t.Fatalf("products = %d, want 0", n)
	}
}

func TestRegistrarAddRemovesFileWhenImageUploadFails(t *testing.T) {
	f := newRegistrarFixture(t)

	in := validProduct()
	in.Image = &Upload{Name: "capa.png", Size: 1024, Body: strings.NewReader("short")}
	if _, err := f.registrar.Add(context.Background(), in); err == nil {
		t.Fatalf("Add() error = nil, want image upload error")
	}

	if files := storedFiles(t, f.root); len(files) != 0 {
		t.Fatalf("blobs left behind: %v", files)
	}
}
