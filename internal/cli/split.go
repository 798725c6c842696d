package cli

import (
	"errors"
	"strings"
)

// ErrUnterminatedQuote — в строке консоли не закрыта кавычка.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// splitArgs разбивает строку консоли на аргументы.
//
// Пробелы разделяют аргументы; '...' и "..." группируют, обратный слэш
// экранирует следующий символ везде, кроме одинарных кавычек.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false

		case r == '\\' && quote != '\'':
			escaped = true
			inArg = true

		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}

		case r == '\'' || r == '"':
			quote = r
			inArg = true

		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}

		default:
			cur.WriteRune(r)
			inArg = true
		}
	}

	if quote != 0 || escaped {
		return nil, ErrUnterminatedQuote
	}
	if inArg {
		args = append(args, cur.String())
	}

	return args, nil
}
