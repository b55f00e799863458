package errors

import (
	"strings"
	"testing"
)

func TestValidateCompanyID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "plain digits", id: "1234567890"},
		{name: "hyphenated", id: "123-45-67890"},
		{name: "empty", id: "", wantErr: true},
		{name: "too long", id: strings.Repeat("1", MaxIDLength+1), wantErr: true},
		{name: "whitespace", id: "123 456", wantErr: true},
		{name: "control char", id: "123\x00", wantErr: true},
		{name: "slash", id: "123/456", wantErr: true},
		{name: "backslash", id: `123\456`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCompanyID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCompanyID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidID) {
				t.Errorf("ValidateCompanyID(%q) code = %v, want %v", tt.id, GetCode(err), ErrCodeInvalidID)
			}
		})
	}
}

func TestValidateKeyword(t *testing.T) {
	tests := []struct {
		name    string
		keyword string
		wantErr bool
	}{
		{name: "empty is fine", keyword: ""},
		{name: "hangul", keyword: "가나다 상사"},
		{name: "registration number", keyword: "123-45"},
		{name: "too long", keyword: strings.Repeat("가", MaxKeywordLength+1), wantErr: true},
		{name: "control char", keyword: "abc\x07", wantErr: true},
		{name: "invalid utf8", keyword: "\xff\xfe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKeyword(tt.keyword)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKeyword(%q) error = %v, wantErr %v", tt.keyword, err, tt.wantErr)
			}
		})
	}
}
