package database

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	var one int
	if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if one != 1 {
		t.Errorf("Expected 1, got %d", one)
	}
}

func TestConnectSetsGlobal(t *testing.T) {
	if err := Connect(":memory:", zerolog.Nop()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if GetDB() == nil {
		t.Fatal("Expected global DB to be set")
	}
}

func TestLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(zerolog.New(&buf))
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), fc, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Errorf("Expected record-not-found to be ignored, got %s", buf.String())
	}

	l.Trace(context.Background(), time.Now(), fc, errors.New("constraint failed"))
	if !strings.Contains(buf.String(), "query failed") {
		t.Errorf("Expected failed query to be logged, got %s", buf.String())
	}

	buf.Reset()
	l.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	if !strings.Contains(buf.String(), "slow query") {
		t.Errorf("Expected slow query to be logged, got %s", buf.String())
	}

	buf.Reset()
	silent := l.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	if buf.Len() != 0 {
		t.Errorf("Expected silent logger to log nothing, got %s", buf.String())
	}
}
