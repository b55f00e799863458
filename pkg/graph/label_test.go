package graph

import "testing"

func TestFormatName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "corporate prefix", in: "주식회사 가나다", want: "가나다"},
		{name: "abbreviation", in: "(주)가나다", want: "가나다"},
		{name: "circled abbreviation", in: "㈜가나다", want: "가나다"},
		{name: "limited company", in: "유한회사 가나", want: "가나"},
		{name: "parenthesized segment", in: "가나다(서울지점)", want: "가나다"},
		{name: "full width parens", in: "가나다（본사）", want: "가나다"},
		{name: "whitespace", in: " 가 나\t다 ", want: "가나다"},
		{name: "seven runes wrap", in: "가나다라마바사", want: "가나다라\n마바사"},
		{name: "eight runes wrap", in: "가나다라 마바사아", want: "가나다라\n마바사아"},
		{name: "six runes stay", in: "가나다라마바", want: "가나다라마바"},
		{name: "nine runes stay", in: "가나다라마바사아자", want: "가나다라마바사아자"},
		{name: "combined", in: "주식회사 가나다라(구 마바) 마바사", want: "가나다라\n마바사"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatName(tt.in); got != tt.want {
				t.Errorf("FormatName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
