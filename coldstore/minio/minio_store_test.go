package minio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeyEscaping(t *testing.T) {
	s := &Store{bucket: "b", prefix: "cold"}

	assert.Equal(t, "cold/M:%7Bt100:p1%7D", s.objectKey("M:{t100:p1}"))
	assert.Equal(t, "cold/user:7", s.objectKey("user:7"))
}
