// Package certsvc wires the certificate store (internal/certstore) behind
// the binder fabric (internal/binder), so the single task that owns the
// store per spec.md §4.5 ("the certificate store is owned by exactly one
// task ... all access is via binders") is the service worker spawned here,
// and every other goroutine reaches it only through a Client.
package certsvc

import (
	"milkyway/internal/binder"
	"milkyway/internal/certstore"
	"milkyway/internal/codec"
	"milkyway/internal/pki"
)

// op tags which certstore operation a request carries.
type op int

const (
	opAddSigning op = iota
	opAddEncryption
	opGetSigning
	opGetEncryption
	opListSigning
	opListEncryption
	opRemoveSigning
	opRemoveEncryption
	opSetRoot
	opGetRoot
	opReplaceRoot
	opCommit
	opLoad
	opVerifySigning
	opVerifyEncryption
)

type request struct {
	op             op
	serial         codec.Uint128
	signingCert    *pki.SigningCertificate
	encryptionCert *pki.EncryptionCertificate
	root           *pki.RootCertificate
	force          bool
}

type response struct {
	ok             bool
	signingCert    *pki.SigningCertificate
	encryptionCert *pki.EncryptionCertificate
	signingList    []*pki.SigningCertificate
	encryptionList []*pki.EncryptionCertificate
	root           *pki.RootCertificate
	err            error
}

// Service owns a *certstore.Store and dispatches every binder request into
// it from a single worker goroutine.
type Service struct {
	binder *binder.Service[request, response]
}

// NewService spawns the owning worker over store and returns the service.
// backlog bounds the number of in-flight client calls, as with any
// binder.Service.
func NewService(store *certstore.Store, backlog int) *Service {
	return &Service{binder: binder.NewService(func(r request) response {
		return dispatch(store, r)
	}, backlog)}
}

func dispatch(store *certstore.Store, r request) response {
	switch r.op {
	case opAddSigning:
		return response{ok: store.AddSigningCertificate(r.signingCert)}
	case opAddEncryption:
		return response{ok: store.AddEncryptionCertificate(r.encryptionCert)}
	case opGetSigning:
		return response{signingCert: store.GetSigning(r.serial)}
	case opGetEncryption:
		return response{encryptionCert: store.GetEncryption(r.serial)}
	case opListSigning:
		return response{signingList: store.ListSigning()}
	case opListEncryption:
		return response{encryptionList: store.ListEncryption()}
	case opRemoveSigning:
		store.RemoveSigning(r.serial)
		return response{ok: true}
	case opRemoveEncryption:
		store.RemoveEncryption(r.serial)
		return response{ok: true}
	case opSetRoot:
		store.SetRootCertificate(r.root)
		return response{ok: true}
	case opGetRoot:
		return response{root: store.GetRoot()}
	case opReplaceRoot:
		return response{err: store.ReplaceRoot(r.root, r.force)}
	case opCommit:
		return response{err: store.Commit()}
	case opLoad:
		return response{err: store.Load()}
	case opVerifySigning:
		return response{ok: store.VerifySigningCertificate(r.signingCert)}
	case opVerifyEncryption:
		return response{ok: store.VerifyEncryptionCertificate(r.encryptionCert)}
	default:
		panic("certsvc: unknown op")
	}
}

// Bind returns a fresh Client over the service, spec.md §4.5's bind().
func (s *Service) Bind() *Client {
	return &Client{b: s.binder.Bind()}
}

// Shutdown stops the worker; every bound Client's subsequent call fails.
func (s *Service) Shutdown() {
	s.binder.Shutdown()
}

// Client is the RPC view callers use instead of touching a *certstore.Store
// directly. Every method blocks for the worker's reply; a binder error
// (only possible after Unbind or a service Shutdown) never panics: it
// surfaces as false, a non-nil error, or a nil result, and the methods
// without a return value (Remove*, SetRootCertificate) drop it.
type Client struct {
	b *binder.Binder[request, response]
}

func (c *Client) AddSigningCertificate(cert *pki.SigningCertificate) bool {
	resp, err := c.b.Call(request{op: opAddSigning, signingCert: cert})
	return err == nil && resp.ok
}

func (c *Client) AddEncryptionCertificate(cert *pki.EncryptionCertificate) bool {
	resp, err := c.b.Call(request{op: opAddEncryption, encryptionCert: cert})
	return err == nil && resp.ok
}

func (c *Client) GetSigning(serial codec.Uint128) *pki.SigningCertificate {
	resp, err := c.b.Call(request{op: opGetSigning, serial: serial})
	if err != nil {
		return nil
	}
	return resp.signingCert
}

func (c *Client) GetEncryption(serial codec.Uint128) *pki.EncryptionCertificate {
	resp, err := c.b.Call(request{op: opGetEncryption, serial: serial})
	if err != nil {
		return nil
	}
	return resp.encryptionCert
}

func (c *Client) ListSigning() []*pki.SigningCertificate {
	resp, err := c.b.Call(request{op: opListSigning})
	if err != nil {
		return nil
	}
	return resp.signingList
}

func (c *Client) ListEncryption() []*pki.EncryptionCertificate {
	resp, err := c.b.Call(request{op: opListEncryption})
	if err != nil {
		return nil
	}
	return resp.encryptionList
}

func (c *Client) RemoveSigning(serial codec.Uint128) {
	c.b.Call(request{op: opRemoveSigning, serial: serial})
}

func (c *Client) RemoveEncryption(serial codec.Uint128) {
	c.b.Call(request{op: opRemoveEncryption, serial: serial})
}

func (c *Client) SetRootCertificate(root *pki.RootCertificate) {
	c.b.Call(request{op: opSetRoot, root: root})
}

func (c *Client) GetRoot() *pki.RootCertificate {
	resp, err := c.b.Call(request{op: opGetRoot})
	if err != nil {
		return nil
	}
	return resp.root
}

func (c *Client) ReplaceRoot(root *pki.RootCertificate, force bool) error {
	resp, err := c.b.Call(request{op: opReplaceRoot, root: root, force: force})
	if err != nil {
		return err
	}
	return resp.err
}

func (c *Client) Commit() error {
	resp, err := c.b.Call(request{op: opCommit})
	if err != nil {
		return err
	}
	return resp.err
}

func (c *Client) Load() error {
	resp, err := c.b.Call(request{op: opLoad})
	if err != nil {
		return err
	}
	return resp.err
}

func (c *Client) VerifySigningCertificate(cert *pki.SigningCertificate) bool {
	resp, err := c.b.Call(request{op: opVerifySigning, signingCert: cert})
	return err == nil && resp.ok
}

func (c *Client) VerifyEncryptionCertificate(cert *pki.EncryptionCertificate) bool {
	resp, err := c.b.Call(request{op: opVerifyEncryption, encryptionCert: cert})
	return err == nil && resp.ok
}

// Unbind releases this client's binding.
func (c *Client) Unbind() { c.b.Unbind() }

// IsAlive reports whether this client can still call the service.
func (c *Client) IsAlive() bool { return c.b.IsAlive() }
