package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/couchcryptid/snowpack-etl/internal/config"
)

var errNoPassword = errors.New("DB_PASSWORD is not set and stdin is not a terminal")

// resolvePassword fills db.Password from an interactive prompt when it was
// not injected through the environment.
func resolvePassword(db *config.DatabaseConfig) error {
	if db.Password != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errNoPassword
	}
	pw, err := promptPassword(os.Stderr, db.User, db.Host, func() ([]byte, error) {
		return term.ReadPassword(fd)
	})
	if err != nil {
		return err
	}
	db.Password = pw
	return nil
}

// promptPassword writes the prompt to w and reads one line with read, which
// must not echo.
func promptPassword(w io.Writer, user, host string, read func() ([]byte, error)) (string, error) {
	fmt.Fprintf(w, "Password for %s@%s: ", user, host)
	b, err := read()
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(string(b), "\r\n")
	if pw == "" {
		return "", errors.New("empty password")
	}
	return pw, nil
}
