//go:build unix

package internal

import "golang.org/x/sys/unix"

// File primitives over raw descriptors. A file is a Managed object whose
// handle indexes the resource table; dropping the last reference closes the
// descriptor through the finalizer.

func closeHostFile(fd int) {
	unix.Close(fd)
}

func fileRecv(in *Interp, rng SourceRange, v Value) (int, int64, Completion) {
	m, ok := ManagedAt(v)
	if !ok || m.Kind() != resourceKindFile {
		return 0, 0, Failf(rng, "file expected, got %s", in.vm.FormatValue(v))
	}
	r, ok := in.vm.resources.get(m.Handle())
	if !ok {
		return 0, 0, Failf(rng, "file is closed")
	}
	return r.(int), m.Handle(), Completion{Kind: NormalCompletion}
}

func addFilePrimitives(p map[string]primitiveFn) {
	p["_FileOpen:Mode:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		pb, ok := ByteArrayAt(args[0].Get())
		if !ok {
			return Failf(rng, "file path must be a string")
		}
		mb, ok := ByteArrayAt(args[1].Get())
		if !ok {
			return Failf(rng, "file mode must be a string")
		}
		var flags int
		switch mode := mb.String(); mode {
		case "r":
			flags = unix.O_RDONLY
		case "w":
			flags = unix.O_WRONLY | unix.O_CREAT | unix.O_TRUNC
		case "a":
			flags = unix.O_WRONLY | unix.O_CREAT | unix.O_APPEND
		default:
			return Failf(rng, "file mode must be r, w, or a, got %q", mode)
		}
		path := pb.String()
		fd, err := unix.Open(path, flags, 0o644)
		if err != nil {
			return Failf(rng, "opening %q: %v", path, err)
		}
		h := in.vm.resources.add(fd)
		tok, rerr := in.vm.reserve(ManagedSizeBytes())
		if rerr != nil {
			in.vm.resources.take(h)
			unix.Close(fd)
			return Failf(rng, "%v", rerr)
		}
		a := NewManaged(tok, in.vm.Heap, in.actor, in.vm.managedMap, h, resourceKindFile)
		tok.Deactivate()
		return Normal(ReferenceValue(a))
	}
	p["_FileWrite:To:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		db, ok := ByteArrayAt(args[0].Get())
		if !ok {
			return Failf(rng, "file data must be a string")
		}
		fd, _, c := fileRecv(in, rng, args[1].Get())
		if c.IsError() {
			return c
		}
		n, err := unix.Write(fd, db.Bytes())
		if err != nil {
			return Failf(rng, "write: %v", err)
		}
		return Normal(IntegerValue(int64(n)))
	}
	p["_FileReadFrom:Max:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		fd, _, c := fileRecv(in, rng, args[0].Get())
		if c.IsError() {
			return c
		}
		nv := args[1].Get()
		if !nv.IsInteger() || nv.Integer() < 0 {
			return Failf(rng, "read size must be a nonnegative integer, got %s", nv)
		}
		buf := make([]byte, nv.Integer())
		n, err := unix.Read(fd, buf)
		if err != nil {
			return Failf(rng, "read: %v", err)
		}
		return in.stringResult(rng, string(buf[:n]))
	}
	p["_FileClose:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		fd, h, c := fileRecv(in, rng, args[0].Get())
		if c.IsError() {
			return c
		}
		in.vm.resources.take(h)
		if err := unix.Close(fd); err != nil {
			return Failf(rng, "close: %v", err)
		}
		return Normal(in.vm.NilObject)
	}
}
