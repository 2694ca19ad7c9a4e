package backend

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Environ returns base with overlay applied. Keys present in overlay replace
// any existing entry; the remaining overlay keys are appended in sorted order
// so the result is deterministic.
func Environ(base []string, overlay map[string]string) []string {
	env := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, replaced := overlay[key]; replaced {
			continue
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overlay[k])
	}
	return env
}

// RuntimeEnv returns the environment overlay the FastR shell needs: R_HOME
// pointing at the suite and the platform's dynamic library search path
// pointing at the bundled native libraries.
func RuntimeEnv(goos, suiteDir string) map[string]string {
	if goos == "" {
		goos = runtime.GOOS
	}
	libDir := filepath.Join(suiteDir, "com.oracle.truffle.r.native", "lib", strings.ToLower(goos))

	env := map[string]string{"R_HOME": suiteDir}
	if goos == "darwin" {
		env["DYLD_FALLBACK_LIBRARY_PATH"] = libDir + string(os.PathListSeparator) + "/usr/lib"
	} else {
		env["LD_LIBRARY_PATH"] = libDir
	}
	return env
}
