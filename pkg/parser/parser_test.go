package parser

import (
	"testing"

	"github.com/ormasoftchile/catengine/pkg/model"
)

func TestParseNumber(t *testing.T) {
	rule := model.ParseRule{Kind: model.ParseNumber}
	got, err := Parse(rule, []byte("voltage=3.30V\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "3.30" {
		t.Errorf("expected 3.30, got %q", got)
	}
}

func TestParseNumberNoMatch(t *testing.T) {
	rule := model.ParseRule{Kind: model.ParseNumber}
	if _, err := Parse(rule, []byte("no digits here")); err == nil {
		t.Error("expected an error when no number is present")
	}
}

func TestParseRegexGroup(t *testing.T) {
	rule := model.ParseRule{Kind: model.ParseRegex, Pattern: `STATUS=(\w+)`, Group: 1}
	got, err := Parse(rule, []byte("STATUS=READY extra"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "READY" {
		t.Errorf("expected READY, got %q", got)
	}
}

func TestParseJSONPath(t *testing.T) {
	rule := model.ParseRule{Kind: model.ParseJSONPath, Path: "data.readings[0].value"}
	got, err := Parse(rule, []byte(`{"data":{"readings":[{"value":"42.5"}]}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "42.5" {
		t.Errorf("expected 42.5, got %q", got)
	}
}

func TestParseJSONPathNullIsError(t *testing.T) {
	rule := model.ParseRule{Kind: model.ParseJSONPath, Path: "value"}
	if _, err := Parse(rule, []byte(`{"value":null}`)); err == nil {
		t.Error("expected an error for a null json path result")
	}
}
