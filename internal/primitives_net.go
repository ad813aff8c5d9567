package internal

import "net"

// Name resolution. _Resolve: looks a host up and returns an array of
// AddrInfo objects; the records themselves live in the resource table and
// are read back through _AddrHost: and _AddrIP:. The lookup runs on the
// calling actor with the run lock held, so resolution blocks evaluation.

func addrInfoRecv(in *Interp, rng SourceRange, v Value) (*AddrInfoRecord, Completion) {
	ai, ok := AddrInfoAt(v)
	if !ok {
		return nil, Failf(rng, "address record expected, got %s", in.vm.FormatValue(v))
	}
	r, ok := in.vm.resources.get(ai.Handle())
	if !ok {
		return nil, Failf(rng, "address record %d is gone", ai.Handle())
	}
	return r.(*AddrInfoRecord), Completion{Kind: NormalCompletion}
}

func addNetPrimitives(p map[string]primitiveFn) {
	p["_Resolve:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		hb, ok := ByteArrayAt(args[0].Get())
		if !ok {
			return Failf(rng, "host name must be a string, got %s", in.vm.FormatValue(args[0].Get()))
		}
		host := hb.String()
		ips, err := net.LookupIP(host)
		if err != nil {
			return Failf(rng, "resolving %q: %v", host, err)
		}
		n := len(ips)
		tok, err := in.vm.reserve(ArraySizeBytes(n) + AddrInfoSizeBytes()*uintptr(n))
		if err != nil {
			return Failf(rng, "%v", err)
		}
		arr := NewArrayFilled(tok, in.actor, in.vm.arrayMap, n, in.vm.NilObject)
		cells := ArrayObject{FromAddress(arr)}.Values()
		for i, ip := range ips {
			h := in.vm.resources.add(&AddrInfoRecord{Host: host, Addr: ip})
			a := NewAddrInfo(tok, in.actor, in.vm.addrInfoMap, h)
			cells[i] = ReferenceValue(a)
		}
		tok.Deactivate()
		return Normal(ReferenceValue(arr))
	}
	p["_AddrHost:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		r, c := addrInfoRecv(in, rng, args[0].Get())
		if c.IsError() {
			return c
		}
		return in.stringResult(rng, r.Host)
	}
	p["_AddrIP:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		r, c := addrInfoRecv(in, rng, args[0].Get())
		if c.IsError() {
			return c
		}
		return in.stringResult(rng, r.Addr.String())
	}
}
