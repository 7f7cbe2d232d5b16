package bind

import (
	"errors"
	"testing"

	"github.com/pbudner/argosbind/encoding"
	"github.com/pbudner/argosbind/paths"
	"github.com/stretchr/testify/require"
)

// slot records every read and write of a bound value.
type slot struct {
	raw      string
	reads    int
	writes   []string
	readErr  error
	writeErr error
}

func (s *slot) read() (string, error) {
	s.reads++
	return s.raw, s.readErr
}

func (s *slot) write(raw string) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, raw)
	s.raw = raw
	return nil
}

func newData(t *testing.T, s *slot, codec encoding.Codec) *Data {
	t.Helper()
	d, err := NewData(s.read, s.write, codec)
	require.NoError(t, err)
	return d
}

func TestNewRequiresCallbacks(t *testing.T) {
	s := &slot{}
	_, err := New(nil, s.write, encoding.JSON)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewData(s.read, nil, encoding.JSON)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewData(s.read, s.write, nil)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = Wrap(nil, "prop", encoding.JSON, nil)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	require.Equal(t, 0, s.reads)
	require.Empty(t, s.writes)
}

func TestDefaultSeeding(t *testing.T) {
	for _, codec := range []encoding.Codec{encoding.JSON, encoding.MsgPack} {
		t.Run(codec.Name(), func(t *testing.T) {
			s := &slot{}
			d := newData(t, s, codec)

			n, err := d.Len()
			require.NoError(t, err)
			require.Equal(t, 0, n)
			require.Equal(t, 1, s.reads)
			require.Len(t, s.writes, 1)

			expected, err := codec.Encode(paths.NewMap())
			require.NoError(t, err)
			require.Equal(t, expected, s.writes[0])
		})
	}
}

func TestStoredValueIsNotRewritten(t *testing.T) {
	s := &slot{raw: `{"a":1}`}
	d := newData(t, s, encoding.JSON)

	v, err := d.Get("a", nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
	require.Empty(t, s.writes)
}

func TestWriteThroughOncePerSet(t *testing.T) {
	s := &slot{raw: "{}"}
	d := newData(t, s, encoding.JSON)

	require.NoError(t, d.Set("a.b", 1))
	require.NoError(t, d.Set("a.c", 2))
	require.Len(t, s.writes, 2)
	require.Equal(t, `{"a":{"b":1,"c":2}}`, s.raw)
}

func TestSetAllWritesOnce(t *testing.T) {
	s := &slot{raw: "{}"}
	d := newData(t, s, encoding.JSON)

	batch := paths.NewMap()
	batch.Set("x.y", "first")
	batch.Set("a", true)
	batch.Set("x.z", []string{"p"})
	require.NoError(t, d.SetAll(batch))
	require.Len(t, s.writes, 1)
	require.Equal(t, `{"x":{"y":"first","z":["p"]},"a":true}`, s.raw)
}

func TestPathNesting(t *testing.T) {
	d := newData(t, &slot{}, encoding.JSON)
	require.NoError(t, d.Set("a.b.c", 5))

	v, err := d.Get("a.b.c", nil)
	require.NoError(t, err)
	require.EqualValues(t, 5, v)

	v, err = d.Get("a", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"b": map[string]interface{}{"c": int64(5)}}, v.(*paths.Map).ToStd())

	v, err = d.Get("a.x", "fallback")
	require.NoError(t, err)
	require.Equal(t, "fallback", v)
}

func TestGetReturnsCopies(t *testing.T) {
	s := &slot{raw: `{"a":{"b":1},"list":[1,2]}`}
	d := newData(t, s, encoding.JSON)

	v, err := d.Get("a", nil)
	require.NoError(t, err)
	v.(*paths.Map).Set("b", "changed")

	v, err = d.Index("list")
	require.NoError(t, err)
	v.([]interface{})[0] = "changed"

	v, err = d.Get("a.b", nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
	v, err = d.Get("list.0", nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
	require.Empty(t, s.writes)
	require.Equal(t, `{"a":{"b":1},"list":[1,2]}`, d.Bind.String())
}

func TestUnsignedNumbersSurviveReload(t *testing.T) {
	for _, codec := range []encoding.Codec{encoding.JSON, encoding.MsgPack} {
		t.Run(codec.Name(), func(t *testing.T) {
			s := &slot{}
			d := newData(t, s, codec)
			require.NoError(t, d.Set("n", uint64(5)))
			require.NoError(t, d.Set("p", uintptr(7)))

			v, err := d.Get("n", nil)
			require.NoError(t, err)
			require.Equal(t, int64(5), v)

			reloaded := newData(t, s, codec)
			require.True(t, paths.Equal(d.Value(), reloaded.Value()))
			v, err = reloaded.Get("n", nil)
			require.NoError(t, err)
			require.Equal(t, int64(5), v)
			v, err = reloaded.Get("p", nil)
			require.NoError(t, err)
			require.Equal(t, int64(7), v)
		})
	}
}

func TestPushMergesMappings(t *testing.T) {
	for _, codec := range []encoding.Codec{encoding.JSON, encoding.MsgPack} {
		t.Run(codec.Name(), func(t *testing.T) {
			seed, err := codec.Encode(paths.MapOf(map[string]interface{}{"x": 1, "y": 2}))
			require.NoError(t, err)
			s := &slot{raw: seed}
			d := newData(t, s, codec)

			require.NoError(t, d.Push(map[string]interface{}{"y": 3, "z": 4}))
			require.Equal(t, map[string]interface{}{"x": int64(1), "y": int64(3), "z": int64(4)}, d.Value().(*paths.Map).ToStd())
			require.Len(t, s.writes, 1)

			// the stored value decodes to the same mapping
			stored, present, err := codec.Decode(s.raw)
			require.NoError(t, err)
			require.True(t, present)
			require.True(t, paths.Equal(d.Value(), stored))
		})
	}
}

func TestPushParsesStrings(t *testing.T) {
	d := newData(t, &slot{raw: `{"keep":1,"a":{"b":"old","c":"old"}}`}, encoding.JSON)
	require.NoError(t, d.Push("a.b=new&d=x"))
	require.Equal(t, map[string]interface{}{
		"keep": int64(1),
		"a":    map[string]interface{}{"b": "new", "c": "old"},
		"d":    "x",
	}, d.Value().(*paths.Map).ToStd())
}

func TestPushReplacesScalars(t *testing.T) {
	s := &slot{raw: `{"a":1}`}
	d := newData(t, s, encoding.JSON)
	require.NoError(t, d.Push(42))
	require.Equal(t, int64(42), d.Value())
	require.Equal(t, "42", s.raw)

	_, err := d.Get("a", nil)
	require.ErrorIs(t, err, ErrInvalidState)

	// pushing a mapping repairs the shape
	require.NoError(t, d.Push(map[string]interface{}{"b": 2}))
	ok, err := d.Has("b")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestActIgnoresNil(t *testing.T) {
	s := &slot{raw: "{}"}
	d := newData(t, s, encoding.JSON)
	require.NoError(t, d.Act(nil))
	require.NoError(t, d.Act(map[string]interface{}(nil)))
	require.NoError(t, d.Act((*paths.Map)(nil)))
	require.NoError(t, d.Act([]interface{}(nil)))
	require.Empty(t, s.writes)

	require.NoError(t, d.Act(map[string]interface{}{"a": 1}))
	require.Equal(t, []string{`{"a":1}`}, s.writes)
}

func TestShapeAssertion(t *testing.T) {
	s := &slot{raw: "hello"}
	d := newData(t, s, encoding.JSON)
	require.Equal(t, "hello", d.Value())
	require.Empty(t, s.writes)

	_, err := d.Get("k", nil)
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorIs(t, d.Set("k", 1), ErrInvalidState)
	require.ErrorIs(t, d.Remove("k"), ErrInvalidState)
	_, err = d.Has("k")
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = d.Len()
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = d.All()
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = d.Index("k")
	require.ErrorIs(t, err, ErrInvalidState)
	require.Empty(t, s.writes)

	// raw access keeps working
	require.Equal(t, `"hello"`, d.String())
}

func TestEncodeIsIdempotent(t *testing.T) {
	for _, codec := range []encoding.Codec{encoding.JSON, encoding.MsgPack} {
		t.Run(codec.Name(), func(t *testing.T) {
			s := &slot{}
			d := newData(t, s, codec)
			require.NoError(t, d.Set("a.b", []interface{}{1, "two", 3.5}))

			require.NoError(t, d.Encode())
			require.NoError(t, d.Encode())
			n := len(s.writes)
			require.Equal(t, s.writes[n-2], s.writes[n-1])
		})
	}
}

func TestRemove(t *testing.T) {
	s := &slot{raw: `{"a":1,"b":2}`}
	d := newData(t, s, encoding.JSON)

	require.NoError(t, d.Remove("a"))
	ok, err := d.Has("a")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, map[string]interface{}{"b": int64(2)}, d.Value().(*paths.Map).ToStd())
	require.Equal(t, `{"b":2}`, s.raw)
}

func TestHasChecksTopLevelKeysOnly(t *testing.T) {
	d := newData(t, &slot{raw: `{"a":{"b":1}}`}, encoding.JSON)
	ok, err := d.Has("a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = d.Has("a.b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIteration(t *testing.T) {
	d := newData(t, &slot{raw: `{"z":1,"a":2,"m":{"n":3}}`}, encoding.JSON)

	seq, err := d.All()
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		var keys []string
		for k := range seq {
			keys = append(keys, k)
		}
		require.Equal(t, []string{"z", "a", "m"}, keys)
	}

	n, err := d.Len()
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestIndexAccess(t *testing.T) {
	s := &slot{raw: "{}"}
	d := newData(t, s, encoding.JSON)

	require.NoError(t, d.SetIndex("k", "v"))
	ok, err := d.Exists("k")
	require.NoError(t, err)
	require.True(t, ok)

	v, err := d.Index("k")
	require.NoError(t, err)
	require.Equal(t, "v", v)

	v, err = d.Index("missing")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, d.DeleteIndex("k"))
	ok, err = d.Exists("k")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "{}", s.raw)
}

func TestComposeAndParse(t *testing.T) {
	s := &slot{raw: "{}"}
	d := newData(t, s, encoding.JSON)

	filter := paths.MapOf(map[string]interface{}{"status": "open", "owner": map[string]interface{}{"id": 7}})
	require.NoError(t, d.Compose("query", filter))

	v, err := d.Get("query", nil)
	require.NoError(t, err)
	require.Equal(t, "owner.id=7&status=open", v)

	parsed, err := d.Parse("query")
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"owner": map[string]interface{}{"id": "7"}, "status": "open"}, parsed.ToStd())

	empty, err := d.Parse("missing")
	require.NoError(t, err)
	require.Equal(t, 0, empty.Len())

	require.NoError(t, d.Set("n", 1))
	_, err = d.Parse("n")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDataString(t *testing.T) {
	d := newData(t, &slot{raw: `{"a":{"b":1},"c":"x y"}`}, encoding.JSON)
	require.Equal(t, "a.b=1&c=x+y", d.String())
}

func TestSetValueAndDecode(t *testing.T) {
	s := &slot{raw: "{}"}
	d := newData(t, s, encoding.JSON)

	require.NoError(t, d.SetValue(map[string]interface{}{"b": 1, "a": 2}))
	require.Equal(t, `{"a":2,"b":1}`, s.raw)

	// another writer changes the slot behind our back
	s.raw = `{"c":3}`
	require.NoError(t, d.Decode())
	v, err := d.Get("c", nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), v)
}

func TestBaseBind(t *testing.T) {
	s := &slot{}
	b, err := New(s.read, s.write, encoding.JSON, WithDefault(func() interface{} { return "seed" }))
	require.NoError(t, err)
	require.Equal(t, "seed", b.Value())
	require.Equal(t, []string{`"seed"`}, s.writes)

	require.NoError(t, b.Act(nil))
	require.Len(t, s.writes, 1)

	require.NoError(t, b.Push([]interface{}{1, 2}))
	require.Equal(t, "[1,2]", s.raw)
	require.Equal(t, "[1,2]", b.String())
	require.Equal(t, "json", b.Codec().Name())

	// a second binding on the same slot decodes what the first one wrote
	other, err := New(s.read, s.write, encoding.JSON)
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(1), int64(2)}, other.Value())
}

func TestCallbackErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := NewData((&slot{readErr: boom}).read, (&slot{}).write, encoding.JSON)
	require.ErrorIs(t, err, boom)

	// seeding fails when the writer fails
	_, err = NewData((&slot{}).read, (&slot{writeErr: boom}).write, encoding.JSON)
	require.ErrorIs(t, err, boom)

	s := &slot{raw: "{}"}
	d := newData(t, s, encoding.JSON)
	s.writeErr = boom
	require.ErrorIs(t, d.Set("a", 1), boom)
}

type model struct {
	ID       int
	Settings string
	Blob     []byte `bind:"blob"`
	hidden   string
}

func TestWrapStructHost(t *testing.T) {
	m := &model{ID: 1}
	host, err := StructHost(m)
	require.NoError(t, err)

	d, err := Wrap(host, "Settings", encoding.JSON, map[string]interface{}{"theme": "dark"})
	require.NoError(t, err)
	require.Equal(t, `{"theme":"dark"}`, m.Settings)

	require.NoError(t, d.Set("size", 12))
	require.Equal(t, `{"theme":"dark","size":12}`, m.Settings)

	blob, err := Wrap(host, "blob", encoding.MsgPack, nil)
	require.NoError(t, err)
	require.NoError(t, blob.Set("k", "v"))
	decoded, _, err := encoding.MsgPack.Decode(string(m.Blob))
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"k": "v"}, decoded.(*paths.Map).ToStd())

	_, err = Wrap(host, "ID", encoding.JSON, nil)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = Wrap(host, "hidden", encoding.JSON, nil)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = StructHost(model{})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}
