//go:build !unix

package internal

func closeHostFile(int) {}

func addFilePrimitives(p map[string]primitiveFn) {
	unavailable := func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		return Failf(rng, "file primitives are not available on this platform")
	}
	for _, name := range []string{"_FileOpen:Mode:", "_FileWrite:To:", "_FileReadFrom:Max:", "_FileClose:"} {
		p[name] = unavailable
	}
}
