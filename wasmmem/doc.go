// Package wasmmem encodes shape-typed values into WebAssembly guest linear
// memory and decodes them back out.
//
// Writer and Reader adapt a bounded region of a wazero api.Memory to the
// codec's Sink and Source contracts. Guest pairs a memory with the guest's
// cabi_realloc export so a value can be stored in freshly allocated guest
// memory and handed over as a (pointer, length) pair.
//
//	g, err := wasmmem.NewGuest(mod)
//	ptr, n, err := g.Store(ctx, s, v)
//	...
//	v, err := g.Load(ptr, n, s, nil)
package wasmmem
