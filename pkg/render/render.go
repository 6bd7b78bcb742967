package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Template names accepted by Render.
const (
	PurchaseReceipt = "purchase_receipt.tmpl"
	OrderHistory    = "order_history.tmpl"
	DownloadExpired = "download_expired.tmpl"
)

// Options select the locale used for money and dates.
type Options struct {
	Locale   language.Tag
	Currency currency.Unit
	Location *time.Location
}

// DefaultOptions formats Brazilian reais for a pt-BR audience.
func DefaultOptions() Options {
	return Options{
		Locale:   language.BrazilianPortuguese,
		Currency: currency.BRL,
		Location: time.UTC,
	}
}

// Engine renders templates embedded in the package.
type Engine struct {
	templates *template.Template
	opts      Options
}

// New initialises an Engine by parsing all embedded templates.
func New(opts Options) (*Engine, error) {
	if opts.Locale == language.Und {
		opts.Locale = language.BrazilianPortuguese
	}
	if opts.Currency == (currency.Unit{}) {
		opts.Currency = currency.BRL
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	e := &Engine{opts: opts}
	t, err := template.New("render").Funcs(template.FuncMap{
		"money": e.Money,
		"date":  e.Date,
	}).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	e.templates = t
	return e, nil
}

// Render executes the named template with the provided data and returns the rendered string.
func (e *Engine) Render(name string, data any) (string, error) {
	if e == nil || e.templates == nil {
		return "", fmt.Errorf("nil engine")
	}

	buf := bytes.NewBuffer(nil)
	if err := e.templates.ExecuteTemplate(buf, name, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Money formats an amount in minor units of the configured currency.
func (e *Engine) Money(minor int64) string {
	scale, _ := currency.Standard.Rounding(e.opts.Currency)
	amount := float64(minor) / math.Pow10(scale)
	return message.NewPrinter(e.opts.Locale).Sprint(currency.Symbol(e.opts.Currency.Amount(amount)))
}

// Date formats t as a day in the configured location.
func (e *Engine) Date(t time.Time) string {
	return t.In(e.opts.Location).Format("02/01/2006")
}
