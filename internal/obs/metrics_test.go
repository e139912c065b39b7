package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/metrics": "/metrics",
		"/api/v1/users/7f1c2d4e-9a0b-4c3d-8e2f-1a2b3c4d5e6f":                  "/api/v1/users/:id",
		"/api/v1/roles/add-permissions/7f1c2d4e-9a0b-4c3d-8e2f-1a2b3c4d5e6f":  "/api/v1/roles/add-permissions/:id",
		"/api/v1/reset-password/eyJhbGciOi.payload.sig":                        "/api/v1/reset-password/:token",
		"/api/v1/reset-password/send-email":                                    "/api/v1/reset-password/send-email",
		"/api/v1/cats?limit=10":                                                "/api/v1/cats",
		"/api/v1/users/search":                                                 "/api/v1/users/search",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
