// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ffs is an implementation of the Feige-Fiat-Shamir zero-knowledge identification
// protocol over a Blum modulus n = p*q. A prover holding secrets s_1..s_k convinces a
// verifier holding the public values v_1..v_k = +-(s_i^2)^-1 mod n, in t rounds of commitment,
// challenge and response, with an impostor succeeding with probability 2^-kt.
//
// The Prover and Verifier types are round state machines that can be driven in-process (see
// Authenticate) or over a byte stream (see the session and wire packages). Key material lives
// in the ffskeys package, Blum moduli are generated by the blumprime package.
package ffs
