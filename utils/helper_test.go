package utils

import (
	"testing"
	"time"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{"owner@example.com", "a.b+tag@shop.co.in"}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Errorf("expected %q to be valid", email)
		}
	}
	invalid := []string{"", "no-at-sign", "missing@tld", "@example.com"}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Errorf("expected %q to be invalid", email)
		}
	}
}

func TestHashAndComparePassword(t *testing.T) {
	hashed, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hashed == "s3cret-pass" {
		t.Fatal("password stored in plain text")
	}
	if err := ComparePassword(hashed, "s3cret-pass"); err != nil {
		t.Errorf("expected matching password, got %v", err)
	}
	if err := ComparePassword(hashed, "wrong-pass"); err == nil {
		t.Error("expected mismatch error for wrong password")
	}
}

func TestComparePasswordMalformedHash(t *testing.T) {
	// a stored value that is not a bcrypt hash must never compare as valid
	if err := ComparePassword("not-a-bcrypt-hash", "anything"); err == nil {
		t.Fatal("expected error for malformed stored hash")
	}
	if err := ComparePassword("", "anything"); err == nil {
		t.Fatal("expected error for empty stored hash")
	}
}

func TestParseDecimal(t *testing.T) {
	dec, err := ParseDecimal(" 123.4500 ")
	if err != nil {
		t.Fatalf("ParseDecimal: %v", err)
	}
	if dec.String() != "123.45" {
		t.Errorf("expected 123.45, got %s", dec.String())
	}
	if _, err := ParseDecimal(""); err == nil {
		t.Error("expected error for empty string")
	}
	if _, err := ParseDecimal("abc"); err == nil {
		t.Error("expected error for non-numeric string")
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDereferencePtr(t *testing.T) {
	value := 42
	if got := DereferencePtr(&value); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := DereferencePtr[int](nil); got != 0 {
		t.Errorf("expected zero value, got %d", got)
	}
	if got := DereferencePtr[int](nil, 7); got != 7 {
		t.Errorf("expected default 7, got %d", got)
	}
}

func TestConvertToDate(t *testing.T) {
	utc := time.Date(2025, 3, 15, 23, 30, 0, 0, time.UTC)
	date, err := ConvertToDate(utc, "Asia/Kolkata")
	if err != nil {
		t.Fatalf("ConvertToDate: %v", err)
	}
	// 23:30 UTC is already the 16th in Kolkata (+05:30).
	if date.Day() != 16 || date.Hour() != 0 || date.Minute() != 0 {
		t.Errorf("expected midnight on the 16th, got %v", date)
	}
}
