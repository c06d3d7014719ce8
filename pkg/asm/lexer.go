package asm

import "strings"

// token is the result of tokenizing one source line: an optional label, an
// optional mnemonic (uppercased), and its comma-separated operands.
type token struct {
	Label     string
	HasLabel  bool
	Mnemonic  string
	HasInstr  bool
	Operands  []string
}

// tokenizeLine splits one source line into (label, mnemonic, operands),
// stripping "#" and "//" comments first: a colon splits off a label, the
// first whitespace-delimited word becomes the mnemonic, and the remainder
// is split on commas with interior whitespace trimmed.
func tokenizeLine(line string) token {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return token{}
	}

	var tok token
	if i := strings.Index(line, ":"); i >= 0 {
		tok.Label = strings.TrimSpace(line[:i])
		tok.HasLabel = true
		line = strings.TrimSpace(line[i+1:])
	}
	if line == "" {
		return tok
	}

	firstSpace := strings.IndexAny(line, " \t")
	var mnemonic, rest string
	if firstSpace < 0 {
		mnemonic = line
	} else {
		mnemonic = line[:firstSpace]
		rest = strings.TrimSpace(line[firstSpace+1:])
	}

	tok.Mnemonic = strings.ToUpper(mnemonic)
	tok.HasInstr = true

	if rest != "" {
		parts := strings.Split(rest, ",")
		tok.Operands = make([]string, len(parts))
		for i, p := range parts {
			tok.Operands[i] = strings.TrimSpace(p)
		}
	}
	return tok
}
