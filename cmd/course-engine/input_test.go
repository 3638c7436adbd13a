// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTopicsCourseFile(t *testing.T) {
	data := []byte(`course_title: Distributed Systems
units:
  - key: u1
    title: Consensus
  - key: u2
    title: Replication
    course_title: Storage
`)
	topics, err := loadTopics(data)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Distributed Systems", topics[0].CourseTitle)
	assert.Equal(t, "Storage", topics[1].CourseTitle)
}

func TestLoadTopicsBareList(t *testing.T) {
	topics, err := loadTopics([]byte("- key: u1\n  title: Consensus\n"))
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "u1", topics[0].Key)
}

func TestLoadTopicsErrors(t *testing.T) {
	_, err := loadTopics([]byte("units:\n  - title: No key\n"))
	assert.ErrorContains(t, err, "has no key")

	_, err = loadTopics([]byte("course_title: Empty\n"))
	assert.ErrorContains(t, err, "no units")
}
