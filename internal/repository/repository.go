package repository

import "errors"

// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres) inside this directory.

// ErrDuplicateSeq is returned by VersionRepository.Create when the
// (file, seq) uniqueness constraint rejects a concurrent writer's row.
var ErrDuplicateSeq = errors.New("version sequence already taken")
