package configure

import (
	"fmt"

	"github.com/open-edge-platform/postgis-composer/internal/buildctx"
)

// GDALDriversEnv enables every optional GDAL format driver inside PostGIS raster.
const (
	GDALDriversEnv   = "POSTGIS_GDAL_ENABLED_DRIVERS"
	GDALDriversValue = "ENABLE_ALL"
	GUIFlag          = "--with-gui"
)

// flagSource is one --with-X flag: either a helper binary under the
// dependency's bin directory, or the dependency's prefix when tool is empty.
type flagSource struct {
	flag string
	dep  string
	tool string
}

var baseFlags = []flagSource{
	{flag: "--with-pgconfig", dep: "postgresql", tool: "pg_config"},
	{flag: "--with-sfcgal", dep: "sfcgal", tool: "sfcgal-config"},
	{flag: "--with-xml2config", dep: "libxml2", tool: "xml2-config"},
	{flag: "--with-geosconfig", dep: "geos", tool: "geos-config"},
	{flag: "--with-projdir", dep: "proj"},
	{flag: "--with-jsondir", dep: "json-c"},
	{flag: "--with-protobufdir", dep: "protobuf-c"},
	{flag: "--with-pcredir", dep: "pcre"},
	{flag: "--with-gdalconfig", dep: "gdal", tool: "gdal-config"},
}

// Args returns the extra ./configure flags for ctx: nine dependency flags in
// fixed order, then --with-gui when the gui variant is on.
func Args(ctx *buildctx.Context) ([]string, error) {
	args := make([]string, 0, len(baseFlags)+1)
	for _, src := range baseFlags {
		var (
			path string
			err  error
		)
		if src.tool != "" {
			path, err = ctx.DepBin(src.dep, src.tool)
		} else {
			path, err = ctx.DepPrefix(src.dep)
		}
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", src.flag, err)
		}
		args = append(args, src.flag+"="+path)
	}

	if ctx.Enabled("gui") {
		args = append(args, GUIFlag)
	}
	return args, nil
}

// BuildEnv returns the environment variables set while building.
func BuildEnv() map[string]string {
	return map[string]string{GDALDriversEnv: GDALDriversValue}
}

// RunEnv returns the environment variables set for anything running the installed package.
func RunEnv() map[string]string {
	return map[string]string{GDALDriversEnv: GDALDriversValue}
}
