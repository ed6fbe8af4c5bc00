package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferFamily_KnownPreferences(t *testing.T) {
	cases := map[string]Family{
		"llvm":          LLVM,
		"apple-llvm":    AppleLLVM,
		"gcc":           GNU,
		"mingw":         MingwGNU,
		"emscripten":    Emscripten,
		"intel-classic": IntelClassic,
		"intel-llvm":    IntelLLVM,
		"vs-2022":       MSVC,
		"llvm-vs-2022":  LLVM,
	}
	for pref, want := range cases {
		got, ok := InferFamily(pref)
		assert.True(t, ok, pref)
		assert.Equal(t, want, got, pref)
	}
}

func TestInferFamily_UnknownPreference(t *testing.T) {
	_, ok := InferFamily("nonsense")
	assert.False(t, ok)
}

func TestNormalizeArch_AliasesCanonicalize(t *testing.T) {
	assert.Equal(t, "x86_64", normalizeArch("x64"))
	assert.Equal(t, "aarch64", normalizeArch("arm64"))
	assert.Equal(t, "i686", normalizeArch("x86"))
}

func TestValidateArch_EmscriptenRejectsNativeArches(t *testing.T) {
	err := validateArch(Emscripten, "x86_64")
	assert.Error(t, err)
}

func TestValidateArch_GNUAcceptsNativeArches(t *testing.T) {
	err := validateArch(GNU, "x86_64")
	assert.NoError(t, err)
}
