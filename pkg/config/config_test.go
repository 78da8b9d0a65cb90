package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct {
	Foo string        `yaml:"foo"`
	Bar string        `yaml:"bar"`
	Sub fakeSubConfig `yaml:"sub"`
}

type fakeSubConfig struct {
	Car int `yaml:"car"`
}

func writeTempConfig(t *testing.T, s string) string {
	f, err := os.CreateTemp(t.TempDir(), "epto")
	require.NoError(t, err)
	_, err = f.WriteString(s)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestLoad(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		path := writeTempConfig(t, `foo: val1
bar: val2
sub:
  car: 5`)

		var conf fakeConfig
		assert.NoError(t, Load(path, &conf, false))

		assert.Equal(t, "val1", conf.Foo)
		assert.Equal(t, "val2", conf.Bar)
		assert.Equal(t, 5, conf.Sub.Car)
	})

	t.Run("expand env", func(t *testing.T) {
		t.Setenv("EPTO_VAL1", "val1")
		t.Setenv("EPTO_VAL2", "val2")

		path := writeTempConfig(t, `foo: $EPTO_VAL1
bar: ${EPTO_VAL2}
sub:
  car: ${EPTO_VAL3:5}`)

		var conf fakeConfig
		assert.NoError(t, Load(path, &conf, true))

		assert.Equal(t, "val1", conf.Foo)
		assert.Equal(t, "val2", conf.Bar)
		assert.Equal(t, 5, conf.Sub.Car)
	})

	t.Run("unknown field", func(t *testing.T) {
		path := writeTempConfig(t, `unknown: val1`)

		var conf fakeConfig
		assert.Error(t, Load(path, &conf, false))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, `invalid yaml...`)

		var conf fakeConfig
		assert.Error(t, Load(path, &conf, false))
	})

	t.Run("not found", func(t *testing.T) {
		var conf fakeConfig
		assert.Error(t, Load("notfound", &conf, false))
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("no path", func(t *testing.T) {
		loadConf := LoadConfig{}
		conf := fakeConfig{Foo: "default"}
		assert.NoError(t, loadConf.Load(&conf))
		assert.Equal(t, "default", conf.Foo)
	})

	t.Run("path", func(t *testing.T) {
		loadConf := LoadConfig{
			Path: writeTempConfig(t, `foo: val1`),
		}
		conf := fakeConfig{Foo: "default", Bar: "default"}
		assert.NoError(t, loadConf.Load(&conf))
		assert.Equal(t, "val1", conf.Foo)
		assert.Equal(t, "default", conf.Bar)
	})
}
