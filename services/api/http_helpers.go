package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 10*time.Second)
}

// contentDisposition forces a download named filename. Plain ASCII names are quoted
// as is; anything else gets an ASCII folded filename plus the RFC 5987 filename*.
func contentDisposition(filename string) string {
	if filename == "" {
		return `attachment; filename="download"`
	}
	folded := asciiFilename(filename)
	if folded == filename {
		return `attachment; filename="` + filename + `"`
	}
	header := `attachment; filename="` + folded + `"`
	extended := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if param, ok := strings.CutPrefix(extended, "attachment; filename*="); ok {
		header += "; filename*=" + param
	}
	return header
}

// asciiFilename strips accents and replaces what is left outside printable ASCII, and
// the quoting characters, with '_'.
func asciiFilename(name string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), name)
	if err != nil {
		stripped = name
	}
	var b strings.Builder
	for _, r := range stripped {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
