package at_test

import (
	"bufio"
	"strings"
	"testing"

	"arborsense.dev/field/cellgw/at"
)

func TestSplitter(t *testing.T) {
	scan := func(input string) []string {
		scanner := bufio.NewScanner(strings.NewReader(input))
		scanner.Split(at.Splitter)
		var tokens []string
		for scanner.Scan() {
			tokens = append(tokens, scanner.Text())
		}
		return tokens
	}

	t.Run("splits CRLF terminated lines", func(t *testing.T) {
		tokens := scan("+CSQ: 20,0\r\n\r\nOK\r\n")
		want := []string{"+CSQ: 20,0", "", "OK"}

		if len(tokens) != len(want) {
			t.Fatalf("expected %d tokens, got %d: %q", len(want), len(tokens), tokens)
		}
		for i := range want {
			if tokens[i] != want[i] {
				t.Errorf("token %d: expected %q, got %q", i, want[i], tokens[i])
			}
		}
	})

	t.Run("recognizes SMS prompt", func(t *testing.T) {
		tokens := scan("> ")
		if len(tokens) != 1 || tokens[0] != at.Prompt {
			t.Errorf("expected prompt token, got %q", tokens)
		}
	})

	t.Run("recognizes HTTP data prompt", func(t *testing.T) {
		tokens := scan("DOWNLOAD")
		if len(tokens) != 1 || tokens[0] != at.Download {
			t.Errorf("expected DOWNLOAD token, got %q", tokens)
		}
	})

	t.Run("returns trailing data at EOF", func(t *testing.T) {
		tokens := scan("+CREG: 2,1\r\nOK")
		want := []string{"+CREG: 2,1", "OK"}

		if len(tokens) != len(want) {
			t.Fatalf("expected %d tokens, got %d: %q", len(want), len(tokens), tokens)
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want at.ResponseType
	}{
		{"OK", at.TypeFinal},
		{"ERROR", at.TypeFinal},
		{"NO CARRIER", at.TypeFinal},
		{"+CME ERROR: SIM not inserted", at.TypeFinal},
		{"+CMS ERROR: 500", at.TypeFinal},
		{"+CMTI: \"SM\",3", at.TypeURC},
		{"+CTZV: +04", at.TypeURC},
		{"RING", at.TypeURC},
		{"> ", at.TypePrompt},
		{"DOWNLOAD", at.TypePrompt},
		{"+CSQ: 20,0", at.TypeData},
		{"867584030012345", at.TypeData},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := at.Classify(tt.line); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestNegative(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"ERROR\r\n", true},
		{"+CME ERROR: operation not allowed\r\n", true},
		{"+CMS ERROR: 331\r\n", true},
		{"+CSQ: 20,0\r\n\r\nOK\r\n", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := at.Negative(tt.text); got != tt.want {
			t.Errorf("Negative(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
