package s3

import (
	"errors"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func TestMapError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{name: "typed no such key", err: &s3types.NoSuchKey{}, notFound: true},
		{name: "typed not found", err: &s3types.NotFound{}, notFound: true},
		{name: "generic api error", err: &smithy.GenericAPIError{Code: "NoSuchKey"}, notFound: true},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}},
		{name: "transport", err: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			if errors.Is(got, ErrNoSuchKey) != tt.notFound {
				t.Fatalf("mapError() = %v, notFound %v", got, tt.notFound)
			}
		})
	}
}

func TestEncodeSHA256(t *testing.T) {
	got, err := encodeSHA256("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")
	if err != nil {
		t.Fatalf("encodeSHA256() error = %v", err)
	}
	if want := "47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU="; got != want {
		t.Fatalf("encodeSHA256() = %q, want %q", got, want)
	}
	if _, err := encodeSHA256("zz"); err == nil {
		t.Fatalf("encodeSHA256() error = nil, want error")
	}
}

func TestNewClientRequiresEndpointAndKeys(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "no endpoint", opts: Options{AccessKey: "a", SecretKey: "b"}},
		{name: "no keys", opts: Options{Endpoint: "localhost:8333"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(t.Context(), tt.opts); err == nil {
				t.Fatalf("NewClient() error = nil, want error")
			}
		})
	}
}
