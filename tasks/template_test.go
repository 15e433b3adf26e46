package tasks

import (
	"errors"
	"testing"
)

func TestRenderTemplate(t *testing.T) {
	got, err := RenderTemplate("Hi {customer_name}, your order at {company} shipped", map[string]string{
		"customer_name": "Jane",
		"company":       "FTEL",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hi Jane, your order at FTEL shipped" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestRenderTemplateNoPlaceholders(t *testing.T) {
	got, err := RenderTemplate("plain text", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "plain text" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestRenderTemplateUnresolvedKey(t *testing.T) {
	_, err := RenderTemplate("Hello {name}, code {promo_code}", map[string]string{"name": "A"})
	if err == nil {
		t.Fatal("expected error for unresolved placeholder")
	}
	var unresolved *UnresolvedKeyError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedKeyError, got %T", err)
	}
	if len(unresolved.Keys) != 1 || unresolved.Keys[0] != "promo_code" {
		t.Errorf("expected promo_code reported, got %v", unresolved.Keys)
	}
}
