package restapi

import (
	"testing"

	"github.com/gin-gonic/gin"
)

func Test_RegisterMethod(t *testing.T) {
	h := func(c *gin.Context) {}
	if err := RegisterMethod(GET, "/register-test", h); err != nil {
		t.Fatalf("RegisterMethod: %v", err)
	}
	if err := RegisterMethod(GET, "/register-test", h); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	// Same path under a different verb is a distinct method.
	if err := RegisterMethod(POST, "/register-test", h); err != nil {
		t.Errorf("RegisterMethod with other verb: %v", err)
	}
	if _, ok := RestMethods()["1_/register-test"]; !ok {
		t.Error("registered method missing from registry")
	}
}
