package binder

import "net/http"

// Binder decodes request data into v. Implementations own their parsing
// rules; callers only match the sentinel errors.
type Binder func(r *http.Request, v any) error
