package filespill

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpill(t *testing.T) {
	t.Run("append and get", func(t *testing.T) {
		s, err := New[string](t.TempDir())
		require.NoError(t, err)
		defer s.Remove()

		require.NoError(t, s.Append("first", "second"))
		assert.Equal(t, 2, s.Len())

		got, err := s.Get(1)
		require.NoError(t, err)
		assert.Equal(t, "second", got)

		_, err = s.Get(2)
		assert.Error(t, err)
	})

	t.Run("range in order", func(t *testing.T) {
		s, err := New[int](t.TempDir())
		require.NoError(t, err)
		defer s.Remove()

		require.NoError(t, s.Append(10, 20))
		require.NoError(t, s.Append(30))

		var collected []int
		require.NoError(t, s.Range(func(_ int, item int) error {
			collected = append(collected, item)
			return nil
		}))
		assert.Equal(t, []int{10, 20, 30}, collected)
	})

	t.Run("range stops on callback error", func(t *testing.T) {
		s, err := New[int](t.TempDir())
		require.NoError(t, err)
		defer s.Remove()

		require.NoError(t, s.Append(1, 2, 3))

		stop := errors.New("stop at 1")
		count := 0
		err = s.Range(func(index int, _ int) error {
			count++
			if index == 1 {
				return stop
			}
			return nil
		})

		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 2, count)
	})

	t.Run("closed spill stays readable", func(t *testing.T) {
		s, err := New[int](t.TempDir())
		require.NoError(t, err)
		defer s.Remove()

		require.NoError(t, s.Append(7))
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())

		got, err := s.Get(0)
		require.NoError(t, err)
		assert.Equal(t, 7, got)

		assert.ErrorIs(t, s.Append(8), ErrClosed)
	})

	t.Run("structs", func(t *testing.T) {
		type point struct{ X, Y int }

		s, err := New[point](t.TempDir())
		require.NoError(t, err)
		defer s.Remove()

		require.NoError(t, s.Append(point{1, 2}, point{3, 4}))

		got, err := s.Get(0)
		require.NoError(t, err)
		assert.Equal(t, point{1, 2}, got)
	})

	t.Run("remove deletes the file", func(t *testing.T) {
		dir := t.TempDir()

		s, err := New[int](dir)
		require.NoError(t, err)
		assert.Equal(t, dir, filepath.Dir(s.Path()))

		require.NoError(t, s.Remove())

		_, err = os.Stat(s.Path())
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("empty spill", func(t *testing.T) {
		s, err := New[int](t.TempDir())
		require.NoError(t, err)
		defer s.Remove()

		count := 0
		require.NoError(t, s.Range(func(int, int) error {
			count++
			return nil
		}))
		assert.Zero(t, count)

		_, err = s.Get(0)
		assert.Error(t, err)
	})
}

func BenchmarkAppend(b *testing.B) {
	s, err := New[int](b.TempDir())
	if err != nil {
		b.Fatalf("new spill: %v", err)
	}
	defer s.Remove()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Append(i)
	}
}

func BenchmarkRange(b *testing.B) {
	s, err := New[int](b.TempDir())
	if err != nil {
		b.Fatalf("new spill: %v", err)
	}
	defer s.Remove()

	for i := 0; i < 1000; i++ {
		_ = s.Append(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Range(func(int, int) error { return nil })
	}
}
