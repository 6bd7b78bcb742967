// Package admin registers products and their downloadable files.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"storefront/pkg/blob"
	"storefront/services/catalog"
)

const (
	// MaxUploadSize bounds product files and images.
	MaxUploadSize = 5 << 20

	fileKeyPrefix  = "products/file_"
	imageKeyPrefix = "products/img_"
)

var (
	fileExtensions  = map[string]bool{".pdf": true, ".doc": true, ".docx": true, ".txt": true}
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

	productNamePattern = regexp.MustCompile(`^[a-zA-Z\x{00C0}-\x{00FF}0-9\s\-_.]+$`)
)

// FieldErrors maps input fields to their problems.
type FieldErrors map[string][]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(f[field], ", "))
	}
	return "invalid product: " + strings.Join(parts, "; ")
}

func (f FieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Upload is a file handed to the registrar. Name is only used for its extension and
// the sanitized suffix of the stored key.
type Upload struct {
	Name string
	Size int64
	Body io.Reader
}

// NewProduct is the input of Registrar.Add.
type NewProduct struct {
	Name         string `validate:"required,min=3,max=100,productname"`
	Description  string `validate:"required,min=10,max=1000"`
	PriceInCents int64  `validate:"gte=100,lte=1000000"`
	Available    bool
	File         *Upload
	Image        *Upload
}

var fieldMessages = map[string]map[string]string{
	"Name": {
		"required":    "Nome deve ter pelo menos 3 caracteres",
		"min":         "Nome deve ter pelo menos 3 caracteres",
		"max":         "Nome não pode exceder 100 caracteres",
		"productname": "Nome contém caracteres inválidos",
	},
	"Description": {
		"required": "Descrição deve ter pelo menos 10 caracteres",
		"min":      "Descrição deve ter pelo menos 10 caracteres",
		"max":      "Descrição não pode exceder 1000 caracteres",
	},
	"PriceInCents": {
		"gte": "Preço mínimo é R$ 1,00",
		"lte": "Preço máximo é R$ 10.000,00",
	},
}

var fieldKeys = map[string]string{
	"Name":         "name",
	"Description":  "description",
	"PriceInCents": "priceInCents",
}

// Registrar validates products, stores their files and inserts them into the catalog.
type Registrar struct {
	products *catalog.GormRepository
	files    blob.Store
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewRegistrar wires a Registrar.
func NewRegistrar(products *catalog.GormRepository, files blob.Store, logger zerolog.Logger) (*Registrar, error) {
	if products == nil {
		return nil, errors.New("product repository is required")
	}
	if files == nil {
		return nil, errors.New("blob store is required")
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("productname", func(fl validator.FieldLevel) bool {
		return productNamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	return &Registrar{
		products: products,
		files:    files,
		validate: v,
		logger:   logger.With().Str("component", "admin").Logger(),
	}, nil
}

// Add registers in. Invalid input is reported as FieldErrors, including a name that
// is already taken. Products start unavailable unless in.Available is set.
func (r *Registrar) Add(ctx context.Context, in NewProduct) (catalog.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if errs := r.check(ctx, in); len(errs) > 0 {
		return catalog.Product{}, errs
	}

	switch _, err := r.products.FindByName(ctx, in.Name); {
	case err == nil:
		return catalog.Product{}, FieldErrors{"name": {"Já existe um produto com este nome"}}
	case !errors.Is(err, catalog.ErrProductNotFound):
		return catalog.Product{}, fmt.Errorf("check product name: %w", err)
	}

	var stored []string
	fileKey, err := r.store(ctx, fileKeyPrefix, in.File)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("store product file: %w", err)
	}
	stored = append(stored, fileKey)

	var imagePath string
	if in.Image != nil {
		imageKey, err := r.store(ctx, imageKeyPrefix, in.Image)
		if err != nil {
			r.discard(ctx, stored)
			return catalog.Product{}, fmt.Errorf("store product image: %w", err)
		}
		stored = append(stored, imageKey)
		imagePath = "/" + imageKey
	}

	product, err := r.products.Create(ctx, catalog.Product{
		Name:                   in.Name,
		Description:            in.Description,
		PriceInCents:           in.PriceInCents,
		FilePath:               fileKey,
		ImagePath:              imagePath,
		IsAvailableForPurchase: in.Available,
	})
	if err != nil {
		r.discard(ctx, stored)
		return catalog.Product{}, err
	}

	r.logger.Info().
		Str("product_id", product.ID.String()).
		Str("name", product.Name).
		Int64("price_in_cents", product.PriceInCents).
		Str("file_path", product.FilePath).
		Msg("product registered")
	return product, nil
}

func (r *Registrar) check(ctx context.Context, in NewProduct) FieldErrors {
	errs := FieldErrors{}

	if err := r.validate.StructCtx(ctx, in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs.add("_form", err.Error())
			return errs
		}
		for _, fe := range verrs {
			msg, ok := fieldMessages[fe.StructField()][fe.Tag()]
			if !ok {
				msg = fe.Error()
			}
			errs.add(fieldKeys[fe.StructField()], msg)
		}
	}

	switch f := in.File; {
	case f == nil || f.Body == nil:
		errs.add("file", "Selecione um arquivo")
	case f.Size <= 0:
		errs.add("file", "Arquivo está vazio")
	case f.Size > MaxUploadSize:
		errs.add("file", "Arquivo deve ter no máximo 5MB")
	case !fileExtensions[strings.ToLower(path.Ext(f.Name))]:
		errs.add("file", "Formato de arquivo inválido. Use PDF, DOC, DOCX ou TXT")
	}

	if img := in.Image; img != nil {
		switch {
		case img.Body == nil || img.Size <= 0:
			errs.add("image", "Arquivo de imagem está vazio")
		case img.Size > MaxUploadSize:
			errs.add("image", "Imagem deve ter no máximo 5MB")
		case !imageExtensions[strings.ToLower(path.Ext(img.Name))]:
			errs.add("image", "Formato de imagem inválido. Use JPEG, PNG ou WebP")
		}
	}

	return errs
}

// discard removes blobs uploaded for a registration that did not complete. Keys that
// cannot be removed are logged for manual cleanup.
func (r *Registrar) discard(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := r.files.Delete(ctx, key); err != nil {
			r.logger.Error().Err(err).Str("key", key).Msg("orphaned product blob")
		}
	}
}

func (r *Registrar) store(ctx context.Context, prefix string, up *Upload) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	key := prefix + id.String() + "-" + SanitizeFileName(up.Name)
	if err := r.files.Put(ctx, key, up.Body, up.Size, blob.ContentTypeFor(key)); err != nil {
		return "", err
	}
	return key, nil
}

// SanitizeFileName strips directories and accents, replaces anything outside
// [a-zA-Z0-9.-] with '_' and lowercases the result.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), name)
	if err != nil {
		stripped = name
	}

	var b strings.Builder
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.ToLower(b.String())
}
