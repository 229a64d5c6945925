package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "census mirror",
			url:      "ftp://ftp2.census.gov/geo/tiger/TIGER2020/ZCTA520/tl_2020_us_zcta520.zip",
			wantHost: "ftp2.census.gov:21",
			wantPath: "/geo/tiger/TIGER2020/ZCTA520/tl_2020_us_zcta520.zip",
		},
		{
			name:     "explicit port",
			url:      "ftp://gis.example.org:2121/plants.zip",
			wantHost: "gis.example.org:2121",
			wantPath: "/plants.zip",
		},
		{
			name:    "http scheme rejected",
			url:     "http://example.com/file.zip",
			wantErr: true,
		},
		{
			name:    "empty path",
			url:     "ftp://ftp.example.com",
			wantErr: true,
		},
		{
			name:    "invalid url",
			url:     "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestNewFTPFetcher_Defaults(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})
	assert.Equal(t, 30*time.Second, f.opts.Timeout)
	assert.Equal(t, "anonymous", f.opts.User)

	f = NewFTPFetcher(FTPOptions{User: "gis", Password: "secret"})
	assert.Equal(t, "gis", f.opts.User)
	assert.Equal(t, "secret", f.opts.Password)
}

func TestFTPDownload_BadURL(t *testing.T) {
	_, err := NewFTPFetcher(FTPOptions{}).DownloadToFile(context.Background(), "https://example.com/x.zip", t.TempDir()+"/x.zip")
	require.Error(t, err)
}
