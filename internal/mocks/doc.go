// Package mocks provides testify mocks for the persistence and scheduling
// interfaces, shared by the service, reminder and API tests.
//
//	items := new(mocks.MockItemStore)
//	items.On("ListDue", mock.Anything, int64(1), now, 5).Return(due, nil)
//
// Each mock asserts at compile time that it satisfies its interface.
package mocks
