package memory

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rstamp/ledger/types"
)

var testLogger = log.New(io.Discard, "", 0)

const (
	addr = "0x1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b"
	hash = "0x9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
)

func TestSubmitRecordConfirms(t *testing.T) {
	l := NewLedger(testLogger)
	l.Clock = func() int64 { return 1234 }
	ctx := context.Background()

	receipt, err := l.SubmitRecord(ctx, addr, hash, "dataset description")
	require.NoError(t, err)
	assert.True(t, receipt.Success)
	assert.EqualValues(t, 1234, receipt.ConfirmedTimestamp, "timestamp is assigned by the ledger")
	assert.NotEmpty(t, receipt.TransactionID)

	rec, err := l.GetRecord(ctx, addr)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, hash, rec.DataHash)
	assert.EqualValues(t, 1234, rec.SubmissionTime)
	assert.False(t, rec.IsVerified)

	count, err := l.GetTotalCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSubmitRecordRejectsDuplicate(t *testing.T) {
	l := NewLedger(testLogger)
	ctx := context.Background()

	_, err := l.SubmitRecord(ctx, addr, hash, "first")
	require.NoError(t, err)

	receipt, err := l.SubmitRecord(ctx, addr, hash, "second")
	require.NoError(t, err, "a business rejection is not a transport error")
	assert.False(t, receipt.Success)
	assert.Equal(t, types.ErrorAlreadySubmitted, receipt.ErrorKind)

	count, _ := l.GetTotalCount(ctx)
	assert.EqualValues(t, 1, count, "the original record is untouched")
}

func TestSubmitRecordRejectsMissingFields(t *testing.T) {
	l := NewLedger(testLogger)

	receipt, err := l.SubmitRecord(context.Background(), "", hash, "desc")
	require.NoError(t, err)
	assert.False(t, receipt.Success)
	assert.Equal(t, types.ErrorRejected, receipt.ErrorKind)
}

func TestGetRecordMissingIsNilNil(t *testing.T) {
	l := NewLedger(testLogger)

	rec, err := l.GetRecord(context.Background(), addr)
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestUnavailableSimulatesTransportFailure(t *testing.T) {
	l := NewLedger(testLogger)
	l.Unavailable = errors.New("connection refused")
	ctx := context.Background()

	_, err := l.SubmitRecord(ctx, addr, hash, "desc")
	assert.Error(t, err)
	_, err = l.GetRecord(ctx, addr)
	assert.Error(t, err)
	_, err = l.GetTotalCount(ctx)
	assert.Error(t, err)
	funded, err := l.FundIdentity(ctx, addr)
	assert.Error(t, err)
	assert.False(t, funded, "an unreachable network cannot fund anything")
}

func TestFundIdentitySucceedsWhenReachable(t *testing.T) {
	l := NewLedger(testLogger)

	funded, err := l.FundIdentity(context.Background(), addr)
	require.NoError(t, err)
	assert.True(t, funded)
}

func TestMarkVerified(t *testing.T) {
	l := NewLedger(testLogger)
	ctx := context.Background()

	assert.False(t, l.MarkVerified(addr), "unknown address")

	_, err := l.SubmitRecord(ctx, addr, hash, "desc")
	require.NoError(t, err)
	assert.True(t, l.MarkVerified(addr))

	rec, err := l.GetRecord(ctx, addr)
	require.NoError(t, err)
	assert.True(t, rec.IsVerified)
}
