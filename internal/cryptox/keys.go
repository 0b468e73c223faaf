package cryptox

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/term"
)

var ErrInvalidKey = errors.New("encryption key must be 16, 24 or 32 bytes")

// KeyProvider supplies the symmetric key used by Engine.
type KeyProvider interface {
	Key(ctx context.Context) ([]byte, error)
}

func validateKeyLen(n int) error {
	switch n {
	case 16, 24, 32:
		return nil
	}
	return ErrInvalidKey
}

// DeriveKey stretches a passphrase with argon2id.
func DeriveKey(passphrase, salt []byte, keyLen uint32) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, keyLen)
}

// StaticKey is a key held in memory, typically loaded from ENCRYPTION_KEY.
type StaticKey []byte

func (k StaticKey) Key(context.Context) ([]byte, error) {
	if err := validateKeyLen(len(k)); err != nil {
		return nil, err
	}
	return []byte(k), nil
}

// ParseStaticKey accepts a hex-encoded key (32, 48 or 64 hex digits) or a raw
// 16/24/32 byte string. Hex wins when both readings are valid.
func ParseStaticKey(s string) (StaticKey, error) {
	if b, err := hex.DecodeString(s); err == nil && validateKeyLen(len(b)) == nil {
		return StaticKey(b), nil
	}
	if err := validateKeyLen(len(s)); err != nil {
		return nil, err
	}
	return StaticKey(s), nil
}

// PassphraseKey derives the key from a configured passphrase and salt.
type PassphraseKey struct {
	Passphrase []byte
	Salt       []byte
	KeyLen     uint32
}

func (p PassphraseKey) Key(context.Context) ([]byte, error) {
	if len(p.Passphrase) == 0 {
		return nil, errors.New("empty passphrase")
	}
	if err := validateKeyLen(int(p.KeyLen)); err != nil {
		return nil, err
	}
	return DeriveKey(p.Passphrase, p.Salt, p.KeyLen), nil
}

var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// PromptKey asks for the passphrase on the controlling terminal the first
// time a key is needed and caches the derived key afterwards. Failed reads
// are not cached.
type PromptKey struct {
	Salt   []byte
	KeyLen uint32
	Prompt string
	Out    io.Writer
	FD     int

	mu       sync.Mutex
	key      []byte
	inflight *prompt
}

type prompt struct {
	done chan struct{}
	key  []byte
	err  error
}

func NewPromptKey(salt []byte, keyLen uint32) *PromptKey {
	return &PromptKey{
		Salt:   salt,
		KeyLen: keyLen,
		Prompt: "Encryption passphrase: ",
		Out:    os.Stderr,
		FD:     int(os.Stdin.Fd()),
	}
}

// Key returns the cached key or waits for the terminal prompt. When ctx is
// done first, Key returns ctx.Err(); the prompt stays open and a later call
// picks up its answer.
func (p *PromptKey) Key(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	if p.key != nil {
		key := p.key
		p.mu.Unlock()
		return key, nil
	}
	pr := p.inflight
	if pr == nil {
		pr = &prompt{done: make(chan struct{})}
		p.inflight = pr
		go func() {
			pr.key, pr.err = p.read()
			close(pr.done)
		}()
	}
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pr.done:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight == pr {
		p.inflight = nil
		if pr.err == nil {
			p.key = pr.key
		}
	}
	return pr.key, pr.err
}

func (p *PromptKey) read() ([]byte, error) {
	if err := validateKeyLen(int(p.KeyLen)); err != nil {
		return nil, err
	}
	if !isTerminal(p.FD) {
		return nil, errors.New("passphrase prompt requires a terminal")
	}

	if p.Out != nil {
		fmt.Fprint(p.Out, p.Prompt)
	}
	pass, err := readPassword(p.FD)
	if p.Out != nil {
		fmt.Fprintln(p.Out)
	}
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	if len(pass) == 0 {
		return nil, errors.New("empty passphrase")
	}

	key := DeriveKey(pass, p.Salt, p.KeyLen)
	for i := range pass {
		pass[i] = 0
	}
	return key, nil
}
