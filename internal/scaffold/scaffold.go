// Package scaffold generates a minimal chalet.json plus a starter source
// file for the `init` command, in the spirit of the reference tool's
// bootstrap template rather than copied output.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
)

const mainCpp = `#include <cstdio>

int main() {
	std::puts("hello, chalet");
	return 0;
}
`

// New writes chalet.json and src/main.cpp under dir for a project named name.
// It refuses to overwrite an existing chalet.json.
func New(dir, name string) error {
	if name == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		name = filepath.Base(abs)
	}

	descriptorPath := filepath.Join(dir, "chalet.json")
	if _, err := os.Stat(descriptorPath); err == nil {
		return fmt.Errorf("%s already exists", descriptorPath)
	}

	descriptor := fmt.Sprintf(`{
  "name": %q,
  "version": "0.1.0",
  "targets": {
    %q: {
      "kind": "executable",
      "language": "C++",
      "cppStandard": "c++17",
      "files": ["src/**.cpp"]
    }
  }
}
`, name, name)

	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(descriptorPath, []byte(descriptor), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "src", "main.cpp"), []byte(mainCpp), 0o644)
}
