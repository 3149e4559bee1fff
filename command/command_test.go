package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStableNumbers(t *testing.T) {
	require.EqualValues(t, 0, InvalidRequest)
	require.EqualValues(t, 1, CustomCommand)
	require.EqualValues(t, 2, GetString)
	require.EqualValues(t, 98, PfMerge)
	require.EqualValues(t, 100, Blpop)
	require.EqualValues(t, 120, LastSave)
	require.EqualValues(t, 124, HRandField)
	require.False(t, RequestType(99).Known())
	require.False(t, RequestType(119).Known())
}

func TestBuild(t *testing.T) {
	args, err := Build(SetString, []string{"k", "v"})
	require.NoError(t, err)
	require.Equal(t, []any{"SET", "k", "v"}, args)

	args, err = Build(ConfigGet, []string{"maxmemory"})
	require.NoError(t, err)
	require.Equal(t, []any{"CONFIG", "GET", "maxmemory"}, args)

	args, err = Build(CustomCommand, []string{"HELLO", "3"})
	require.NoError(t, err)
	require.Equal(t, []any{"HELLO", "3"}, args)
}

func TestBuildRejectsInvalid(t *testing.T) {
	_, err := Build(InvalidRequest, nil)
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = Build(RequestType(4096), []string{"x"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = Build(CustomCommand, nil)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEveryTypeHasWords(t *testing.T) {
	for rt, e := range table {
		if rt == InvalidRequest || rt == CustomCommand {
			require.Empty(t, e.words, rt.String())
			continue
		}
		require.NotEmpty(t, e.words, rt.String())
	}
}

func TestLookup(t *testing.T) {
	rt, err := Lookup("getstring")
	require.NoError(t, err)
	require.Equal(t, GetString, rt)

	rt, err = Lookup("123")
	require.NoError(t, err)
	require.Equal(t, ObjectEncoding, rt)
	require.Equal(t, "ObjectEncoding", rt.String())

	_, err = Lookup("InvalidRequest")
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = Lookup("99")
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Equal(t, "RequestType(99)", RequestType(99).String())
}
