package model

// Package model contains domain models/data structures.
// Keep it free of persistence tags and business logic so the same types
// can cross the HTTP, service, and storage layers.
