package domain

import "time"

type ViewEvent struct {
	ID         string
	UserID     string
	AssemblyID string
	ViewedAt   time.Time
}

type ViewCount struct {
	AssemblyID string
	Views      int64
}

type PopularAssembly struct {
	Summary Summary
	Views   int64
}
