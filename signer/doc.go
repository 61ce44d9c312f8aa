// Package signer provides asynchronous request signing for the execution
// core, implemented with the AWS SDK's Signature Version 4 signer.
//
// Signing is split into three independently failable steps to match the
// engine's state machine: build a [Signable] view of the message, sign it
// asynchronously, and apply the resulting [Result] back onto the live
// message:
//
//	s := signer.NewV4()
//	sg, err := s.NewSignable(req)
//	err = s.SignAsync(ctx, sg, cfg, func(res signer.Result, err error) {
//		if err == nil {
//			err = res.Apply(req)
//		}
//		// continue or fail the request
//	})
//
// The signer never mutates the message itself; only [Result.Apply] writes
// the computed authorization headers.
package signer
