package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0644))
	return p
}

func TestDecode(t *testing.T) {
	cp1251, err := charmap.Windows1251.NewEncoder().String("# Привет\n")
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf8", []byte("x = 'héllo'\n"), "x = 'héllo'\n"},
		{"bom stripped", []byte("\xef\xbb\xbfprint(1)\n"), "print(1)\n"},
		{"cp1251 fallback", []byte(cp1251), "# Привет\n"},
		{"empty", []byte{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Binary(t *testing.T) {
	_, err := Decode([]byte("PK\x03\x04\x00\x00"), false)
	assert.ErrorIs(t, err, ErrBinary)
}

func TestDecode_CodingCookie(t *testing.T) {
	body, err := charmap.KOI8R.NewEncoder().String("# -*- coding: koi8-r -*-\nNAME = 'Привет'\n")
	require.NoError(t, err)

	got, err := Decode([]byte(body), true)
	require.NoError(t, err)
	assert.Equal(t, "# -*- coding: koi8-r -*-\nNAME = 'Привет'\n", got)
}

func TestDecode_Utf8CookieIsPlainPath(t *testing.T) {
	got, err := Decode([]byte("# coding: utf-8\nA = 'ü'\n"), true)
	require.NoError(t, err)
	assert.Equal(t, "# coding: utf-8\nA = 'ü'\n", got)
}

func TestDecodingReader_ReadText(t *testing.T) {
	p := writeFile(t, "mod.py", []byte("def f():\n    return 1\n"))

	text, err := NewReader(0).ReadText(p)
	require.NoError(t, err)
	assert.Equal(t, "def f():\n    return 1\n", text)
}

func TestDecodingReader_TooLarge(t *testing.T) {
	p := writeFile(t, "big.txt", []byte("0123456789012345678901234567890123456789"))

	_, err := NewReader(16).ReadText(p)
	assert.ErrorIs(t, err, ErrTooLarge)

	text, err := NewReader(64).ReadText(p)
	require.NoError(t, err)
	assert.Len(t, text, 40)
}

func TestDecodingReader_Missing(t *testing.T) {
	_, err := NewReader(0).ReadText(filepath.Join(t.TempDir(), "gone.py"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
