package shardvault

import (
	"errors"
	"fmt"
	"testing"
)

func Test_CodeOf(t *testing.T) {
	err := Error{Code: NotFound, Err: fmt.Errorf("nope")}
	if CodeOf(err) != NotFound {
		t.Errorf("CodeOf got %d, expected NotFound", CodeOf(err))
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if CodeOf(wrapped) != NotFound {
		t.Errorf("CodeOf of wrapped got %d, expected NotFound", CodeOf(wrapped))
	}
	if CodeOf(fmt.Errorf("plain")) != Unknown {
		t.Error("CodeOf of plain error should be Unknown")
	}
	if CodeOf(nil) != Unknown {
		t.Error("CodeOf of nil should be Unknown")
	}
}

func Test_ErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("inner")
	err := Error{Code: Internal, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should see through Error")
	}
}

func Test_ErrorString(t *testing.T) {
	err := Error{Code: AlreadyExists, Err: fmt.Errorf("file a.txt already exists"), UserData: "a.txt"}
	s := err.Error()
	if s == "" {
		t.Fatal("empty error string")
	}
	plain := Error{Code: Internal, Err: fmt.Errorf("boom")}
	if plain.Error() == s {
		t.Error("user data should show up in the error string")
	}
}
