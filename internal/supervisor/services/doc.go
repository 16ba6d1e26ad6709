// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

// Package services adapts components with their own lifecycle to suture's
// Serve(ctx) error contract.
//
// HTTPServerService wraps *http.Server: ListenAndServe on a goroutine,
// Shutdown with a fresh timeout context once ctx is cancelled.
package services
