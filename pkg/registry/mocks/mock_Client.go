// Package mocks provides test doubles for the registry client.
package mocks

import (
	"context"

	registry "github.com/sells-group/procurement-leads/pkg/registry"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Lookup provides a mock function with given fields: ctx, taxID
func (_m *MockClient) Lookup(ctx context.Context, taxID string) (*registry.Entity, error) {
	ret := _m.Called(ctx, taxID)

	if len(ret) == 0 {
		panic("no return value specified for Lookup")
	}

	var r0 *registry.Entity
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*registry.Entity, error)); ok {
		return rf(ctx, taxID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *registry.Entity); ok {
		r0 = rf(ctx, taxID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*registry.Entity)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, taxID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
