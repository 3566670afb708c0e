package recipe

// Postgis returns the descriptor for the PostGIS spatial extension to PostgreSQL.
func Postgis() *Descriptor {
	return &Descriptor{
		Name: "postgis",
		Description: "PostGIS is a spatial database extender for PostgreSQL object-relational " +
			"database. It adds support for geographic objects allowing location queries to be run in SQL",
		Homepage:    "https://postgis.net/",
		URLTemplate: "https://download.osgeo.org/postgis/source/postgis-{version}.tar.gz",
		License:     "GPL-2.0-or-later",
		Versions: []Version{
			{Version: "3.1.2", SHA256: "2cdd3760176926704b4eb25ff3357543c9637dee74425a49082906857c7e0732"},
			{Version: "3.0.1", SHA256: "5a5432f95150d9bae9215c6d1c7bb354e060482a7c379daa9b8384e1d03e6353"},
			{Version: "3.0.0", SHA256: "c06fd2cd5cea0119106ffe17a7235d893c2bbe6f4b63c8617c767630973ba594"},
			{Version: "2.5.3", SHA256: "72e8269d40f981e22fb2b78d3ff292338e69a4f5166e481a77b015e1d34e559a"},
		},
		Variants: []Variant{
			{
				Name:        "gui",
				Default:     false,
				Description: "Build with GUI support, creating shp2pgsql-gui graphical interface to shp2pgsql",
			},
		},
		Dependencies: []Dependency{
			{Name: "c", Types: []DepType{DepBuild}},
			{Name: "cxx", Types: []DepType{DepBuild}},
			{Name: "postgresql"},
			{Name: "geos"},
			{Name: "proj"},
			{Name: "gdal"},
			{Name: "libxml2"},
			{Name: "json-c"},
			{Name: "sfcgal"},
			{Name: "pcre"},
			{Name: "perl", Types: []DepType{DepBuild, DepRun}},
			{Name: "protobuf-c"},
			{Name: "gtkplus", Range: ":2.24.32", When: "gui"},
		},
	}
}
