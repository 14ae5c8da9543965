package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeOverpayment:   http.StatusUnprocessableEntity,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, want := range cases {
		if got := MetadataFor(code).HTTPStatus; got != want {
			t.Fatalf("MetadataFor(%s).HTTPStatus = %d, want %d", code, got, want)
		}
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("root cause")
	err := Wrap(CodeDependency, cause, "saving sale")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause in chain")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsThroughFmtWrap(t *testing.T) {
	inner := New(CodeOverpayment, "amount exceeds balance").
		WithDetails(map[string]string{"remaining": "40.00"})
	outer := fmt.Errorf("add payment: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through wrap")
	}
	if typed.Code() != CodeOverpayment {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if typed.Details() == nil {
		t.Fatal("expected details to survive")
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeStateConflict, "sale is not under review")
	if !IsCode(err, CodeStateConflict) {
		t.Fatal("expected IsCode match")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatal("unexpected IsCode match")
	}
	if IsCode(nil, CodeNotFound) {
		t.Fatal("nil error should never match")
	}
}
