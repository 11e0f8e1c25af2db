package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// ErrEmptyToken is returned when the user enters nothing at the token prompt.
var ErrEmptyToken = errors.New("access token is required")

// GetToken prints a prompt to w and reads an access token from the
// terminal without echo. A newline is printed after the read to keep the
// output tidy.
func GetToken(w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Access token: "); err != nil {
		return "", err
	}
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}
