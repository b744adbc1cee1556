package rpc

import (
	"context"
	"errors"

	"github.com/named-data/ndnrpc/std/ndn"
	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// EncodeStatus serializes st as a google.rpc.Status message.
// This is the content of an ApplicationError Data.
func EncodeStatus(st *status.Status) ([]byte, error) {
	return proto.Marshal(st.Proto())
}

// DecodeStatus parses ApplicationError content.
func DecodeStatus(content []byte) (*status.Status, error) {
	pb := &spb.Status{}
	if err := proto.Unmarshal(content, pb); err != nil {
		return nil, err
	}
	return status.FromProto(pb), nil
}

// NackStatus maps a network Nack to the status returned to gRPC callers.
func NackStatus(reason ndn.NackReason) *status.Status {
	switch {
	case reason.IsNoRoute():
		return status.New(codes.Unavailable, "no route: "+reason.String())
	case reason == ndn.NackReasonCongestion:
		return status.New(codes.ResourceExhausted, "congestion")
	case reason == ndn.NackReasonDuplicate:
		return status.New(codes.Aborted, "duplicate request")
	}
	return status.New(codes.Unavailable, "nack: "+reason.String())
}

// ToStatus maps an outbound request failure to a gRPC status.
func ToStatus(err error) *status.Status {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		return st
	}

	var nack ndn.NackError
	switch {
	case errors.As(err, &nack):
		return NackStatus(nack.Reason)
	case errors.Is(err, ndn.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, ndn.ErrIncompleteTransfer):
		return status.New(codes.DataLoss, err.Error())
	case errors.Is(err, ndn.ErrNoRoute), errors.Is(err, ndn.ErrTransport):
		return status.New(codes.Unavailable, err.Error())
	case errors.Is(err, ndn.ErrCancelled), errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	case errors.Is(err, ndn.ErrMalformedName):
		return status.New(codes.InvalidArgument, err.Error())
	}
	return status.New(codes.Internal, err.Error())
}

// IsResourceExhausted reports whether a failed call should be answered
// with a Congestion Nack instead of an ApplicationError.
func IsResourceExhausted(err error) bool {
	switch status.Code(err) {
	case codes.ResourceExhausted, codes.Unavailable:
		return true
	}
	return false
}
