package httpx

import "bytes"

// VersionLess reports whether version a is numerically less than version b,
// where both are the bytes after "HTTP/" (e.g. "1.0", "1.1"). Used for the
// keep-alive and Expect: 100-continue rules, which compare against "1.1".
func VersionLess(a, b []byte) bool {
	aMaj, aMin, aOK := splitVersion(a)
	bMaj, bMin, bOK := splitVersion(b)
	if !aOK {
		// An unparseable/absent version is treated as older than any
		// known version, matching h11's "None is oldest" convention.
		return bOK
	}
	if !bOK {
		return false
	}
	if aMaj != bMaj {
		return aMaj < bMaj
	}
	return aMin < bMin
}

func splitVersion(v []byte) (major, minor int, ok bool) {
	if v == nil {
		return 0, 0, false
	}
	dot := bytes.IndexByte(v, '.')
	if dot < 0 {
		return 0, 0, false
	}
	maj, majOK := parseDigits(v[:dot])
	min, minOK := parseDigits(v[dot+1:])
	if !majOK || !minOK {
		return 0, 0, false
	}
	return maj, min, true
}

func parseDigits(s []byte) (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
