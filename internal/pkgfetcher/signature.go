package pkgfetcher

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/open-edge-platform/postgis-composer/internal/utils/logger"
)

var armorHeader = []byte("-----BEGIN PGP")

func isArmored(r *bufio.Reader) bool {
	head, _ := r.Peek(64)
	return bytes.Contains(head, armorHeader)
}

// LoadKeyring reads an armored or binary OpenPGP public keyring.
func LoadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keyring %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var keyring openpgp.EntityList
	if isArmored(r) {
		keyring, err = openpgp.ReadArmoredKeyRing(r)
	} else {
		keyring, err = openpgp.ReadKeyRing(r)
	}
	if err != nil {
		return nil, fmt.Errorf("reading keyring %s: %w", path, err)
	}
	return keyring, nil
}

// VerifySignature checks the detached signature sigPath over archivePath
// against the keys in keyringPath.
func VerifySignature(archivePath, sigPath, keyringPath string) error {
	log := logger.Logger()

	keyring, err := LoadKeyring(keyringPath)
	if err != nil {
		return err
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", archivePath, err)
	}
	defer archive.Close()

	sigFile, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("opening signature %s: %w", sigPath, err)
	}
	defer sigFile.Close()

	sig := bufio.NewReader(sigFile)
	var check func(openpgp.KeyRing, io.Reader, io.Reader) (*openpgp.Entity, error)
	if isArmored(sig) {
		check = func(k openpgp.KeyRing, signed, s io.Reader) (*openpgp.Entity, error) {
			return openpgp.CheckArmoredDetachedSignature(k, signed, s, nil)
		}
	} else {
		check = func(k openpgp.KeyRing, signed, s io.Reader) (*openpgp.Entity, error) {
			return openpgp.CheckDetachedSignature(k, signed, s, nil)
		}
	}

	signer, err := check(keyring, archive, sig)
	if err != nil {
		return fmt.Errorf("signature verification of %s failed: %w", archivePath, err)
	}
	for name := range signer.Identities {
		log.Infof("✓ %s signed by %s", archivePath, name)
		break
	}
	return nil
}

// FetchSignatures downloads the detached signature published at
// <req.URL><suffix> for every request into destDir and returns the local
// paths in request order. Signatures carry no digest of their own.
func FetchSignatures(ctx context.Context, reqs []Request, destDir, suffix string) ([]string, error) {
	paths := make([]string, 0, len(reqs))
	for _, req := range reqs {
		sigReq := Request{URL: req.URL + suffix, FileName: req.FileName + suffix}
		dest := filepath.Join(destDir, sigReq.FileName)
		if err := download(ctx, sigReq, dest); err != nil {
			return nil, fmt.Errorf("fetching signature for %s: %w", req.FileName, err)
		}
		paths = append(paths, dest)
	}
	return paths, nil
}
