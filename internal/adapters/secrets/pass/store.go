// Package pass keeps session tokens in the user's password-store through the
// pass command line tool.
package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/IniZio/skygear-sdk-go/internal/ports"
)

const (
	defaultBinary = "pass"
	missingEntry  = "is not in the password store"
)

var ErrUnavailable = errors.New("pass command unavailable")

// invocation is a single run of the pass binary.
type invocation struct {
	args  []string
	stdin string
}

type output struct {
	stdout string
	stderr string
}

type runner func(ctx context.Context, inv invocation) (output, error)

// Store shells out to pass for every operation.
type Store struct {
	binary string
	run    runner
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore() *Store {
	s := &Store{binary: defaultBinary}
	s.run = s.execute
	return s
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := checkRequest(ctx, key); err != nil {
		return err
	}

	out, err := s.run(ctx, invocation{
		args:  []string{"insert", "--multiline", "--force", key},
		stdin: value + "\n",
	})
	if err != nil {
		return &commandError{op: "put", key: key, stderr: out.stderr, err: err}
	}
	return nil
}

// Get reports domain.ErrSecretNotFound when pass has no entry for key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := checkRequest(ctx, key); err != nil {
		return "", err
	}

	out, err := s.run(ctx, invocation{args: []string{"show", key}})
	switch {
	case err == nil:
		return strings.TrimRight(out.stdout, "\r\n"), nil
	case strings.Contains(out.stderr, missingEntry):
		return "", fmt.Errorf("pass get %q: %w", key, domain.ErrSecretNotFound)
	default:
		return "", &commandError{op: "get", key: key, stderr: out.stderr, err: err}
	}
}

// Delete treats a missing entry as already deleted.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := checkRequest(ctx, key); err != nil {
		return err
	}

	out, err := s.run(ctx, invocation{args: []string{"rm", "--force", key}})
	if err != nil && !strings.Contains(out.stderr, missingEntry) {
		return &commandError{op: "delete", key: key, stderr: out.stderr, err: err}
	}
	return nil
}

func (s *Store) execute(ctx context.Context, inv invocation) (output, error) {
	path, err := exec.LookPath(s.binary)
	if errors.Is(err, exec.ErrNotFound) {
		return output{}, ErrUnavailable
	}
	if err != nil {
		return output{}, fmt.Errorf("locate %s: %w", s.binary, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, inv.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if inv.stdin != "" {
		cmd.Stdin = strings.NewReader(inv.stdin)
	}

	runErr := cmd.Run()
	return output{stdout: stdout.String(), stderr: strings.TrimSpace(stderr.String())}, runErr
}

func checkRequest(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("secret key is empty")
	}
	return nil
}

// commandError carries what pass printed on stderr next to the exit error.
type commandError struct {
	op     string
	key    string
	stderr string
	err    error
}

func (e *commandError) Error() string {
	msg := fmt.Sprintf("pass %s %q: %v", e.op, e.key, e.err)
	if e.stderr != "" {
		msg += ": " + e.stderr
	}
	return msg
}

func (e *commandError) Unwrap() error {
	return e.err
}
