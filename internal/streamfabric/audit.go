package streamfabric

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AuditConfig configures the JSONL mirror written alongside the live fabric
// (mirrors services/common/audit.py's StreamAuditConfig.from_env, generalized
// to cover both the quote-stream audit and the OMS order audit named in
// spec §6's OMS_AUDIT_* / STREAM_AUDIT_* env vars).
type AuditConfig struct {
	Path        string
	Streams     map[string]bool // nil/empty means audit every stream
	RotateBytes int64
}

// AuditConfigFromEnv builds an AuditConfig from the conventional
// STREAM_AUDIT_PATH / STREAM_AUDIT_STREAMS / STREAM_AUDIT_ROTATE_BYTES
// triple, or the OMS_AUDIT_PATH / OMS_AUDIT_ROTATE_MB pair when prefix is
// "OMS". An empty path disables auditing (ok=false).
func AuditConfigFromEnv(prefix string, getenv func(string) string) (AuditConfig, bool) {
	path := getenv(prefix + "_AUDIT_PATH")
	if path == "" {
		return AuditConfig{}, false
	}

	streams := map[string]bool{}
	if raw := getenv(prefix + "_AUDIT_STREAMS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				streams[s] = true
			}
		}
	}

	rotateBytes := int64(50 * 1024 * 1024)
	if raw := getenv(prefix + "_AUDIT_ROTATE_BYTES"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			rotateBytes = n
		}
	} else if raw := getenv(prefix + "_AUDIT_ROTATE_MB"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			rotateBytes = n * 1024 * 1024
		}
	}

	return AuditConfig{Path: path, Streams: streams, RotateBytes: rotateBytes}, true
}

// Auditor mirrors every published/consumed entry to a per-stream JSONL file
// under cfg.Path, rotating by size. One mutex per stream file keeps
// concurrent writers from interleaving lines (the Go analogue of the
// Python original's per-stream asyncio.Lock).
type Auditor struct {
	cfg   AuditConfig
	mu    sync.Map // stream name -> *sync.Mutex
	nowFn func() time.Time
}

// NewAuditor constructs an Auditor. now defaults to time.Now when nil; tests
// may override it to make rotation filenames deterministic.
func NewAuditor(cfg AuditConfig, now func() time.Time) *Auditor {
	if now == nil {
		now = time.Now
	}
	return &Auditor{cfg: cfg, nowFn: now}
}

// Enabled reports whether stream is subject to auditing under this config.
func (a *Auditor) Enabled(stream string) bool {
	if len(a.cfg.Streams) == 0 {
		return true
	}
	return a.cfg.Streams[stream]
}

// Write appends one JSONL record for (stream, entry) to its audit file,
// rotating the file first if it has grown past RotateBytes.
func (a *Auditor) Write(stream string, entry Entry) error {
	if !a.Enabled(stream) {
		return nil
	}

	lockVal, _ := a.mu.LoadOrStore(stream, &sync.Mutex{})
	lock := lockVal.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	path := a.filePath(stream)
	if err := a.rotateIfNeeded(path); err != nil {
		return fmt.Errorf("streamfabric: rotate audit file for %s: %w", stream, err)
	}

	record := map[string]any{
		"id":        entry.ID,
		"stream":    stream,
		"payload":   entry.Payload,
		"audited_at": a.nowFn().UTC().Format(time.RFC3339Nano),
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("streamfabric: marshal audit record for %s: %w", stream, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("streamfabric: open audit file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("streamfabric: write audit record for %s: %w", stream, err)
	}
	return nil
}

func (a *Auditor) filePath(stream string) string {
	safe := strings.ReplaceAll(stream, ":", "_")
	return filepath.Join(a.cfg.Path, safe+".jsonl")
}

// rotateIfNeeded renames an over-size audit file aside with a UTC timestamp
// suffix, so the next write reopens a fresh file (mirrors
// StreamAuditor._append's rotation branch).
func (a *Auditor) rotateIfNeeded(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < a.cfg.RotateBytes {
		return nil
	}

	stamp := a.nowFn().UTC().Format("20060102T150405.000000Z")
	rotated := strings.TrimSuffix(path, ".jsonl") + "." + stamp + ".jsonl"
	return os.Rename(path, rotated)
}
