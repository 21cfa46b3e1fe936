package cert

import (
	"bufio"
	"crypto/x509"
	"os"
	"path/filepath"
	"strings"
)

// DetectType determines the FileType of a file by extension and content inspection.
func DetectType(path string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pfx", ".p12":
		return FileTypePFX, nil
	}

	hasCert, err := scanPEMMarkers(path)
	if err != nil {
		return FileTypeUnknown, err
	}
	if hasCert {
		return FileTypeCert, nil
	}

	isDER, err := IsDEREncoded(path)
	if err != nil || !isDER {
		return FileTypeUnknown, nil
	}
	// Both DER certificates and PFX archives start with a SEQUENCE.
	data, err := os.ReadFile(path)
	if err != nil {
		return FileTypeUnknown, err
	}
	if _, err := x509.ParseCertificate(data); err == nil {
		return FileTypeDER, nil
	}
	if strings.ToLower(filepath.Ext(path)) == ".der" {
		return FileTypeDER, nil
	}
	return FileTypePFX, nil
}

// scanPEMMarkers reports whether a file contains a BEGIN CERTIFICATE marker.
func scanPEMMarkers(path string) (hasCert bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "BEGIN CERTIFICATE") {
			return true, nil
		}
	}
	// Binary files can exceed the scanner's line limit; that just means no PEM.
	if err := scanner.Err(); err != nil && err != bufio.ErrTooLong {
		return false, err
	}
	return false, nil
}

// IsDEREncoded checks if a file starts with the ASN.1 SEQUENCE tag (0x30).
func IsDEREncoded(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, 1)
	n, err := f.Read(buf)
	if err != nil || n == 0 {
		return false, err
	}
	return buf[0] == 0x30, nil
}
