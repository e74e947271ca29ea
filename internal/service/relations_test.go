package service

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/taskboard/internal/model"
)

func TestResolveURL(t *testing.T) {
	cases := map[string]string{
		"":                      "",
		"/uploads/a.png":        "http://localhost:5050/uploads/a.png",
		"uploads/a.png":         "http://localhost:5050/uploads/a.png",
		"https://example.com/x": "https://example.com/x",
		"HTTP://Example.com/Y":  "HTTP://Example.com/Y",
		"ftp-ish/path":          "http://localhost:5050/ftp-ish/path",
		"ftp://files.x.com/a":   "ftp://files.x.com/a",
		"mailto:a@x.com":        "mailto:a@x.com",
		"//cdn.x.com/p.png":     "//cdn.x.com/p.png",
	}
	for in, want := range cases {
		require.Equal(t, want, resolveURL(testOrigin+"/", in), in)
	}
}

func TestAggregator_Merge(t *testing.T) {
	st := newMemStore()
	agg := NewAggregator(memAtts{st}, memTags{st}, testOrigin)
	ctx := context.Background()

	require.NoError(t, agg.Merge(ctx, nil))
	require.Zero(t, st.attListCalls)

	t1 := model.Task{ID: uuid.Must(uuid.NewV4())}
	t2 := model.Task{ID: uuid.Must(uuid.NewV4())}
	stranger := uuid.Must(uuid.NewV4())
	st.atts = []*model.Attachment{
		{ID: uuid.Must(uuid.NewV4()), TaskID: t1.ID, Kind: model.AttachmentFile, URL: "/uploads/k.png", Path: "k.png"},
		{ID: uuid.Must(uuid.NewV4()), TaskID: t1.ID, Kind: model.AttachmentLink, URL: "https://go.dev"},
		{ID: uuid.Must(uuid.NewV4()), TaskID: stranger, Kind: model.AttachmentLink, URL: "https://x"},
	}
	st.tags = []*model.Tag{{ID: uuid.Must(uuid.NewV4()), TaskID: t2.ID, Label: "l", Color: "#fff"}}

	tasks := []model.Task{t1, t2}
	require.NoError(t, agg.Merge(ctx, tasks))

	require.Len(t, tasks[0].Attachments, 2)
	require.Equal(t, testOrigin+"/uploads/k.png", tasks[0].Attachments[0].URL)
	require.Equal(t, "https://go.dev", tasks[0].Attachments[1].URL)
	require.NotNil(t, tasks[0].Tags)
	require.Empty(t, tasks[0].Tags)
	require.NotNil(t, tasks[1].Attachments)
	require.Len(t, tasks[1].Tags, 1)
	require.Equal(t, 1, st.attListCalls)
	require.Equal(t, 1, st.tagListCalls)

	// stored rows stay relative
	require.Equal(t, "/uploads/k.png", st.atts[0].URL)
}
