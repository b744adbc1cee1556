package rpc

import (
	"fmt"
	"strings"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MethodMapper maps full gRPC method names to NDN names. Explicit exports
// take precedence; other methods map to <prefix>/<service>/<method>.
type MethodMapper struct {
	prefix  enc.Name
	exports map[string]enc.Name
}

// NewMethodMapper creates a mapper. A nil prefix disables the fallback.
func NewMethodMapper(prefix enc.Name, exports map[string]enc.Name) *MethodMapper {
	if exports == nil {
		exports = make(map[string]enc.Name)
	}
	return &MethodMapper{prefix: prefix, exports: exports}
}

// SplitMethod splits "/pkg.Service/Method" into its two parts.
func SplitMethod(method string) (service string, name string, err error) {
	s := strings.TrimPrefix(method, "/")
	service, name, ok := strings.Cut(s, "/")
	if !ok || service == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid method name %q", method)
	}
	return service, name, nil
}

// Map returns the NDN name serving method.
func (m *MethodMapper) Map(method string) (enc.Name, error) {
	if name, ok := m.exports[method]; ok {
		return name, nil
	}
	if m.prefix == nil {
		return nil, status.Errorf(codes.Unimplemented, "method %s is not exported", method)
	}

	service, name, err := SplitMethod(method)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", enc.ErrMalformedName, err)
	}
	return m.prefix.Append(
		enc.NewGenericComponent(service),
		enc.NewGenericComponent(name),
	), nil
}
