package configure

import (
	"reflect"
	"testing"

	"github.com/open-edge-platform/postgis-composer/internal/buildctx"
	"github.com/open-edge-platform/postgis-composer/internal/recipe"
)

func newContext(t *testing.T, gui bool) *buildctx.Context {
	t.Helper()
	deps := map[string]buildctx.Dep{
		"postgresql": {Prefix: "/opt/pg"},
		"geos":       {Prefix: "/opt/geos"},
		"proj":       {Prefix: "/opt/proj"},
		"gdal":       {Prefix: "/opt/gdal"},
		"libxml2":    {Prefix: "/opt/libxml2"},
		"json-c":     {Prefix: "/opt/json-c"},
		"sfcgal":     {Prefix: "/opt/sfcgal"},
		"pcre":       {Prefix: "/opt/pcre"},
		"protobuf-c": {Prefix: "/opt/protobuf-c"},
	}
	if gui {
		deps["gtkplus"] = buildctx.Dep{Prefix: "/opt/gtk", Version: "2.24.32"}
	}
	ctx, err := buildctx.New(recipe.Postgis(), "3.1.2", "/opt/postgis", deps, map[string]bool{"gui": gui})
	if err != nil {
		t.Fatalf("buildctx.New failed: %v", err)
	}
	return ctx
}

var wantBase = []string{
	"--with-pgconfig=/opt/pg/bin/pg_config",
	"--with-sfcgal=/opt/sfcgal/bin/sfcgal-config",
	"--with-xml2config=/opt/libxml2/bin/xml2-config",
	"--with-geosconfig=/opt/geos/bin/geos-config",
	"--with-projdir=/opt/proj",
	"--with-jsondir=/opt/json-c",
	"--with-protobufdir=/opt/protobuf-c",
	"--with-pcredir=/opt/pcre",
	"--with-gdalconfig=/opt/gdal/bin/gdal-config",
}

func TestArgsWithoutGUI(t *testing.T) {
	args, err := Args(newContext(t, false))
	if err != nil {
		t.Fatalf("Args failed: %v", err)
	}
	if len(args) != 9 {
		t.Fatalf("expected 9 flags, got %d: %v", len(args), args)
	}
	if !reflect.DeepEqual(args, wantBase) {
		t.Errorf("Args() =\n%v\nwant\n%v", args, wantBase)
	}
}

func TestArgsWithGUI(t *testing.T) {
	args, err := Args(newContext(t, true))
	if err != nil {
		t.Fatalf("Args failed: %v", err)
	}
	if len(args) != 10 {
		t.Fatalf("expected 10 flags, got %d: %v", len(args), args)
	}
	if !reflect.DeepEqual(args[:9], wantBase) {
		t.Errorf("base flags changed with gui: %v", args[:9])
	}
	if args[9] != GUIFlag {
		t.Errorf("tenth flag = %q, want %q", args[9], GUIFlag)
	}
}

func TestArgsDeterministic(t *testing.T) {
	ctx := newContext(t, false)
	first, _ := Args(ctx)
	for i := 0; i < 20; i++ {
		again, err := Args(ctx)
		if err != nil {
			t.Fatalf("Args failed: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Args not deterministic: %v vs %v", first, again)
		}
	}
}

func TestEnvironments(t *testing.T) {
	for name, env := range map[string]map[string]string{"build": BuildEnv(), "run": RunEnv()} {
		if env[GDALDriversEnv] != "ENABLE_ALL" {
			t.Errorf("%s env missing %s: %v", name, GDALDriversEnv, env)
		}
	}
}
