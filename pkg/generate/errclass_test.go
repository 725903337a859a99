package generate

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		diag string
		want Category
	}{
		{"Imagen API is only accessible to billed users at this time", CategoryBilling},
		{"generate blocked: blocked by HARM_CATEGORY_HATE_SPEECH", CategorySafety},
		{"googleapi: Error 429: RESOURCE_EXHAUSTED: quota exceeded", CategoryQuota},
		{"rpc error: code = NotFound desc = requested entity was not found", CategoryNotFound},
		{"dial tcp: connection refused", CategoryNetwork},
		{"Error 400: INVALID_ARGUMENT: unsupported model", CategoryInvalidArgument},
		{"something else entirely", CategoryUnknown},
		{"", CategoryUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.diag); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.diag, got, tt.want)
		}
	}
}

func TestCategoryHints(t *testing.T) {
	for _, c := range []Category{
		CategoryBilling, CategorySafety, CategoryQuota,
		CategoryNetwork, CategoryInvalidArgument, CategoryNotFound, CategoryUnknown,
	} {
		if len(c.Hints()) == 0 {
			t.Errorf("%s has no hints", c)
		}
	}
}

func TestNeedsCredentialReselection(t *testing.T) {
	if !NeedsCredentialReselection("requested entity was not found") {
		t.Fatal("entity-not-found should trigger credential reselection")
	}
	if NeedsCredentialReselection("quota exceeded") {
		t.Fatal("quota failure should not trigger credential reselection")
	}
}
