// Package xerrors re-exports github.com/cockroachdb/errors so the rest of
// this module has one place to swap error handling without touching every
// call site. See teranos-QNTX/errors for the pattern this mirrors.
package xerrors

import (
	crdb "github.com/cockroachdb/errors"
)

var (
	New   = crdb.New
	Newf  = crdb.Newf
	Wrap  = crdb.Wrap
	Wrapf = crdb.Wrapf

	Is = crdb.Is
	As = crdb.As
)
