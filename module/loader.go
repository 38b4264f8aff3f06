package module

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cvsouth/u8node/boss"
	"github.com/cvsouth/u8node/crypto/keyaddr"
	"github.com/cvsouth/u8node/crypto/rsakey"
	"github.com/cvsouth/u8node/errs"
	"github.com/cvsouth/u8node/trust"
)

// fetchedModules caches downloaded bundle bytes in-process by URL, so a
// script that repeatedly requires the same remote module within one run
// doesn't re-fetch it over HTTP every time; <home>/.u8/loaded_modules still
// holds the on-disk copy across separate runs. Bounded well above any
// realistic number of distinct remote modules loaded in one process.
var fetchedModules, _ = lru.New[string, []byte](64)

// ScriptHost is the thin external collaborator that owns the actual
// scripting engine; the module loader only decides which files exist and
// whether they are trusted, and hands the rest off to this interface.
type ScriptHost interface {
	Evaluate(ctx context.Context, expr string) (string, error)
	RunMain(ctx context.Context, entryFile string, argv []string) error
}

// UNSResolver performs the optional remote UNS-name lookup used by the
// trust resolver to check whether a signing key is bound to a UNS
// contract. It is satisfied by *client.Client against a configured
// directory service.
type UNSResolver interface {
	Handshake(ctx context.Context) error
	Command(ctx context.Context, command string, params *boss.Map) (*boss.Map, error)
}

// Loader resolves, verifies, and trust-checks module bundles.
type Loader struct {
	publisherKey *rsakey.Key // hardcoded u8-publisher key; always trusted
	trustStore   *trust.Store
	prompter     trust.Prompter
	uns          UNSResolver // optional; nil disables remote UNS lookups
	host         ScriptHost

	// roots accumulates require-roots across loaded modules, in load order.
	roots []string
}

// NewLoader creates a Loader. publisherKey is the hardcoded key that must
// sign the compiled-in u8core bundle; ts is the operator's trust file;
// prompter drives interactive trust decisions (use
// trust.NonInteractivePrompter{} for unattended contexts); uns may be nil.
func NewLoader(publisherKey *rsakey.Key, ts *trust.Store, prompter trust.Prompter, uns UNSResolver, host ScriptHost) *Loader {
	return &Loader{publisherKey: publisherKey, trustStore: ts, prompter: prompter, uns: uns, host: host}
}

// Host returns the configured ScriptHost, or nil if none was set.
func (l *Loader) Host() ScriptHost { return l.host }

// Roots returns the accumulated require-roots across every module loaded
// so far, in load order (most-recently-loaded first is NOT guaranteed).
func (l *Loader) Roots() []string { return append([]string(nil), l.roots...) }

// isU8Core reports whether name is the reserved name of the compiled-in
// core bundle, which skips the module's own root and is the only bundle
// trusted exclusively via the hardcoded publisher key.
func isU8Core(name string) bool { return name == "u8core" }

// resolveModulePath resolves a module name to its bytes: literal path,
// ./.u8/modules/<name>, <home>/.u8/modules/<name>, or an HTTP(S) fetch.
func resolveModulePath(name string) ([]byte, error) {
	if looksLikeURL(name) {
		return fetchModule(name)
	}
	candidates := []string{name, filepath.Join(".u8", "modules", name)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".u8", "modules", name))
	}
	for _, c := range candidates {
		if data, err := os.ReadFile(c); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", errs.ErrModuleNotFound, name)
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func fetchModule(url string) ([]byte, error) {
	if data, ok := fetchedModules.Get(url); ok {
		return data, nil
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrModuleDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d fetching %s", errs.ErrModuleDownloadFailed, resp.StatusCode, url)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrModuleDownloadFailed, err)
	}

	home, err := os.UserHomeDir()
	if err == nil {
		dir := filepath.Join(home, ".u8", "loaded_modules")
		if err := os.MkdirAll(dir, 0o700); err == nil {
			sanitized := sanitizeModuleFileName(url)
			_ = os.WriteFile(filepath.Join(dir, sanitized+".u8m"), data, 0o600)
		}
	}
	fetchedModules.Add(url, data)
	return data, nil
}

func sanitizeModuleFileName(url string) string {
	var b strings.Builder
	for _, r := range url {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Load runs the full load sequence: resolve the path, open and
// signature-verify the bundle, consult the trust resolver, and populate
// require-roots. A bad signature hard-aborts: no roots are populated and
// ErrModuleBadSignature propagates.
func (l *Loader) Load(ctx context.Context, name string) (*Bundle, error) {
	raw, err := resolveModulePath(name)
	if err != nil {
		return nil, err
	}
	return l.LoadBytes(ctx, name, raw)
}

// LoadBytes runs the same sequence as Load against an already-resolved
// byte slice (used for the compiled-in u8core bundle and in tests).
func (l *Loader) LoadBytes(ctx context.Context, name string, raw []byte) (*Bundle, error) {
	bundle, err := Open(raw)
	if err != nil {
		return nil, err
	}

	if err := l.checkTrust(ctx, name, bundle); err != nil {
		return nil, err
	}

	if err := l.populateRoots(name, bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (l *Loader) checkTrust(ctx context.Context, name string, bundle *Bundle) error {
	if isU8Core(name) {
		if !keysEqual(bundle.SignedBy, l.publisherKey) {
			return fmt.Errorf("%w: u8core must be signed by the hardcoded publisher key", errs.ErrModuleUntrustedKey)
		}
		return nil
	}

	addr, err := keyaddr.From(bundle.SignedBy, false)
	if err != nil {
		return fmt.Errorf("compute signer key address: %w", err)
	}
	addrStr := addr.String()
	pubBytes, err := rsakey.Marshal(bundle.SignedBy)
	if err != nil {
		return err
	}

	if l.trustStore != nil && l.trustStore.Matches(bundle.Manifest.Name, pubBytes, addrStr, bundle.Manifest.UNSName) {
		return nil
	}

	if bundle.Manifest.UNSName != "" && l.uns != nil {
		if ok, err := l.checkUNSContract(ctx, bundle.Manifest.UNSName, addrStr); err == nil && ok {
			return nil
		}
	}

	return l.promptAndMaybeTrust(bundle.Manifest.Name, bundle.Manifest.UNSName, addrStr)
}

func (l *Loader) checkUNSContract(ctx context.Context, unsName, signerAddress string) (bool, error) {
	params := boss.NewMap()
	params.Set("name", boss.String(unsName))
	resp, err := l.uns.Command(ctx, "queryNameContract", params)
	if err != nil {
		return false, err
	}
	addressesVal, _ := resp.Get("addresses")
	arr, ok := addressesVal.(boss.Array)
	if !ok {
		return false, nil
	}
	for _, v := range arr {
		if s, ok := v.(boss.String); ok && string(s) == signerAddress {
			return true, nil
		}
	}
	return false, nil
}

func (l *Loader) promptAndMaybeTrust(moduleName, unsName, addrStr string) error {
	if l.prompter == nil || l.trustStore == nil {
		return fmt.Errorf("%w: %s signed by untrusted key %s", errs.ErrModuleUntrustedKey, moduleName, addrStr)
	}

	trusted := false
	if unsName != "" && l.prompter.Confirm(fmt.Sprintf("Trust UNS name %q for module %q?", unsName, moduleName)) {
		if err := l.trustStore.TrustUNSName(moduleName, unsName); err != nil {
			return err
		}
		trusted = true
	}
	if l.prompter.Confirm(fmt.Sprintf("Trust key address %q for module %q?", addrStr, moduleName)) {
		if err := l.trustStore.TrustAddress(moduleName, addrStr); err != nil {
			return err
		}
		trusted = true
	}
	if !trusted {
		return fmt.Errorf("%w: %s signed by untrusted key %s", errs.ErrModuleUntrustedKey, moduleName, addrStr)
	}
	return nil
}

func keysEqual(a, b *rsakey.Key) bool {
	if a == nil || b == nil {
		return false
	}
	am, err1 := rsakey.Marshal(a.Public())
	bm, err2 := rsakey.Marshal(b.Public())
	return err1 == nil && err2 == nil && string(am) == string(bm)
}

// populateRoots adds the module's own root (skipped for u8core) then its
// jslib subdirectory; absence of jslib is fatal for u8core.
func (l *Loader) populateRoots(name string, bundle *Bundle) error {
	if !isU8Core(name) {
		l.roots = append(l.roots, name)
	}
	jslib := name + "/jslib"
	if !bundle.HasDir("jslib/") && isU8Core(name) {
		return fmt.Errorf("%w: u8core", errs.ErrModuleMissingJslib)
	}
	if bundle.HasDir("jslib/") {
		l.roots = append(l.roots, jslib)
	}
	return nil
}

// ResolveRequired resolves a require()'d file name: an absolute or
// "./"-prefixed name is used as-is; otherwise each require-root is tried
// in order.
func (l *Loader) ResolveRequired(name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "./") {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", errs.ErrModuleNotFound, name)
	}
	for _, root := range l.roots {
		candidate := filepath.Join(root, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errs.ErrModuleNotFound, name)
}

