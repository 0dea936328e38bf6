// Package lockfile implements the interchange format described in
// SPEC_FULL.md 6: a codec for the resolver's lockfile plus the
// content-hash the CLI uses to decide whether that lockfile is stale
// with respect to the manifest it was generated from. None of this is
// reachable from internal/solver — the solver only ever sees the
// locked_packages a caller already decoded.
package lockfile

import (
	"bytes"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"sort"
)

// manifestHashKeys lists, in order, the manifest keys that participate
// in the content hash. This order and set are fixed by the ecosystem
// the lockfile format was borrowed from, not a local design choice.
var manifestHashKeys = []string{
	"name",
	"version",
	"require",
	"require-dev",
	"conflict",
	"replace",
	"provide",
	"minimum-stability",
	"prefer-stable",
	"repositories",
	"extra",
	"config.platform",
}

// ContentHash computes the MD5 content hash of a manifest document,
// the same value the lockfile stores so a later run can tell whether
// the manifest has drifted since the lockfile was written. manifest
// may omit any of the hashed keys; a missing key contributes nothing,
// matching the reference implementation's behavior of hashing only
// the keys that are actually present.
func ContentHash(manifest map[string]interface{}) string {
	relevant := make(map[string]interface{}, len(manifestHashKeys))
	for _, key := range manifestHashKeys {
		if v, ok := manifest[key]; ok {
			relevant[key] = v
		}
	}

	encoded := encodeStable(relevant)
	sum := md5.Sum(encoded)
	return fmt.Sprintf("%x", sum)
}

// encodeStable JSON-encodes v with object keys sorted (so the same
// logical document always produces the same bytes regardless of
// construction order) and with every "/" escaped as "\/", matching the
// reference implementation's own compact-JSON encoding rules exactly.
func encodeStable(v interface{}) []byte {
	var buf bytes.Buffer
	encodeValue(&buf, v)
	return bytes.ReplaceAll(buf.Bytes(), []byte("/"), []byte(`\/`))
}

func encodeValue(buf *bytes.Buffer, v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		encodeObject(buf, val)
	case map[string]string:
		asAny := make(map[string]interface{}, len(val))
		for k, vv := range val {
			asAny[k] = vv
		}
		encodeObject(buf, asAny)
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeValue(buf, item)
		}
		buf.WriteByte(']')
	default:
		// Scalars (string, bool, number, nil) have no ordering concerns;
		// encoding/json already produces stable, compact output for them.
		raw, _ := json.Marshal(val)
		buf.Write(raw)
	}
}

func encodeObject(buf *bytes.Buffer, obj map[string]interface{}) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyRaw, _ := json.Marshal(k)
		buf.Write(keyRaw)
		buf.WriteByte(':')
		encodeValue(buf, obj[k])
	}
	buf.WriteByte('}')
}
