package nfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMovie_FullDocument(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<movie>
  <title>Heat</title>
  <originaltitle>Heat</originaltitle>
  <year>1995</year>
  <plot>A group of professional bank robbers.</plot>
  <tagline>A Los Angeles crime saga.</tagline>
  <mpaa>R</mpaa>
  <runtime>170</runtime>
  <genre>Crime</genre>
  <genre>Drama</genre>
  <studio>Warner Bros.</studio>
  <country>USA</country>
  <director>Michael Mann</director>
  <credits>Michael Mann</credits>
  <uniqueid type="imdb" default="true">tt0113277</uniqueid>
  <uniqueid type="tmdb">949</uniqueid>
  <rating>8.3</rating>
  <votes>700000</votes>
  <thumb aspect="poster">http://img/poster.jpg</thumb>
  <fanart><thumb>http://img/fanart.jpg</thumb></fanart>
  <actor>
    <name>Al Pacino</name>
    <role>Vincent Hanna</role>
    <thumb>http://img/pacino.jpg</thumb>
  </actor>
  <actor>
    <name>Robert De Niro</name>
    <role>Neil McCauley</role>
  </actor>
</movie>`)

	p := NewParser()
	m, err := p.ParseMovie(data)
	require.NoError(t, err)

	require.NotNil(t, m.Title)
	assert.Equal(t, "Heat", *m.Title)
	require.NotNil(t, m.Year)
	assert.Equal(t, 1995, *m.Year)
	require.NotNil(t, m.RuntimeMinutes)
	assert.Equal(t, int64(170), *m.RuntimeMinutes)
	assert.Equal(t, []string{"Crime", "Drama"}, m.Genres)
	assert.Equal(t, []string{"Michael Mann"}, m.Directors)
	assert.Equal(t, []string{"Michael Mann"}, m.Writers)

	assert.Equal(t, "tt0113277", m.UniqueIDs["imdb"])
	assert.Equal(t, "949", m.UniqueIDs["tmdb"])

	require.NotNil(t, m.Rating)
	assert.InDelta(t, 8.3, *m.Rating, 0.001)
	require.NotNil(t, m.Votes)
	assert.Equal(t, int64(700000), *m.Votes)

	assert.Equal(t, "http://img/poster.jpg", m.Art["poster"])
	assert.Equal(t, "http://img/fanart.jpg", m.Art["fanart"])

	require.Len(t, m.Cast, 2)
	assert.Equal(t, "Al Pacino", m.Cast[0].Name)
	assert.Equal(t, "Vincent Hanna", m.Cast[0].Role)
	assert.Equal(t, "Robert De Niro", m.Cast[1].Name)
}

func TestParseMovie_WrongRoot(t *testing.T) {
	_, err := NewParser().ParseMovie([]byte(`<tvshow><title>The Wire</title></tvshow>`))
	assert.ErrorIs(t, err, ErrWrongRoot)
}

func TestParseMovie_MalformedFieldsDegradePerField(t *testing.T) {
	data := []byte(`<movie>
  <title>Odd One</title>
  <year>not a year</year>
  <runtime></runtime>
  <rating>n/a</rating>
</movie>`)

	m, err := NewParser().ParseMovie(data)
	require.NoError(t, err)

	require.NotNil(t, m.Title)
	assert.Equal(t, "Odd One", *m.Title)
	assert.Nil(t, m.Year)
	assert.Nil(t, m.RuntimeMinutes)
	assert.Nil(t, m.Rating)
}

func TestParseMovie_NewRatingsShape(t *testing.T) {
	data := []byte(`<movie>
  <title>Heat</title>
  <ratings>
    <rating name="imdb" max="10" default="true">
      <value>8.3</value>
      <votes>712000</votes>
    </rating>
  </ratings>
</movie>`)

	m, err := NewParser().ParseMovie(data)
	require.NoError(t, err)
	require.NotNil(t, m.Rating)
	assert.InDelta(t, 8.3, *m.Rating, 0.001)
	require.NotNil(t, m.Votes)
	assert.Equal(t, int64(712000), *m.Votes)
}

func TestParseMovie_LegacyRatingValueElement(t *testing.T) {
	data := []byte(`<movie><title>X</title><rating><value>7.5</value><votes>100</votes></rating></movie>`)

	m, err := NewParser().ParseMovie(data)
	require.NoError(t, err)
	require.NotNil(t, m.Rating)
	assert.InDelta(t, 7.5, *m.Rating, 0.001)
}

func TestParseMovie_LegacyIDFallback(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bare imdb element", `<movie><imdb>tt0113277</imdb></movie>`, "tt0113277"},
		{"tt-prefixed id", `<movie><id>tt0113277</id></movie>`, "tt0113277"},
		{"numeric id", `<movie><id>949</id></movie>`, "949"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewParser().ParseMovie([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.UniqueIDs["imdb"])
		})
	}
}

func TestParseMovie_TypedUniqueIDBeatsLegacy(t *testing.T) {
	data := []byte(`<movie>
  <uniqueid type="imdb">tt0113277</uniqueid>
  <imdb>tt9999999</imdb>
</movie>`)

	m, err := NewParser().ParseMovie(data)
	require.NoError(t, err)
	assert.Equal(t, "tt0113277", m.UniqueIDs["imdb"])
}

func TestParseMovie_NonIDLikeIDIgnored(t *testing.T) {
	m, err := NewParser().ParseMovie([]byte(`<movie><id>somescraper</id></movie>`))
	require.NoError(t, err)
	assert.Nil(t, m.UniqueIDs)
}

func TestParseMovie_ArtAspects(t *testing.T) {
	data := []byte(`<movie>
  <thumb aspect="poster">http://img/p1.jpg</thumb>
  <thumb aspect="poster">http://img/p2.jpg</thumb>
  <thumb>http://img/plain.jpg</thumb>
  <thumb aspect="weird">http://img/unknown.jpg</thumb>
  <thumb aspect="banner">http://img/banner.jpg</thumb>
</movie>`)

	m, err := NewParser().ParseMovie(data)
	require.NoError(t, err)

	// First occurrence wins per aspect; unknown aspects are skipped.
	assert.Equal(t, "http://img/p1.jpg", m.Art["poster"])
	assert.Equal(t, "http://img/plain.jpg", m.Art["thumb"])
	assert.Equal(t, "http://img/banner.jpg", m.Art["banner"])
	assert.NotContains(t, m.Art, "weird")
}

func TestParseMovie_ActorLimit(t *testing.T) {
	doc := `<movie>`
	for i := 0; i < 10; i++ {
		doc += `<actor><name>Actor ` + string(rune('A'+i)) + `</name></actor>`
	}
	doc += `<actor><name></name></actor></movie>`

	p := &Parser{ActorLimit: 3}
	m, err := p.ParseMovie([]byte(doc))
	require.NoError(t, err)
	require.Len(t, m.Cast, 3)
	assert.Equal(t, "Actor A", m.Cast[0].Name)
	assert.Equal(t, "Actor C", m.Cast[2].Name)
}

func TestParseMovie_ShapeTolerantGenres(t *testing.T) {
	// The same genres expressed as a bare scalar, an attributed node, and a
	// list must normalize identically.
	shapes := map[string]string{
		"bare scalars":     `<movie><genre>Crime</genre><genre>Drama</genre></movie>`,
		"attributed nodes": `<movie><genre type="main">Crime</genre><genre type="sub">Drama</genre></movie>`,
		"mixed list":       `<movie><genre>Crime</genre><genre type="sub">Drama</genre></movie>`,
	}

	for name, doc := range shapes {
		t.Run(name, func(t *testing.T) {
			m, err := NewParser().ParseMovie([]byte(doc))
			require.NoError(t, err)
			assert.Equal(t, []string{"Crime", "Drama"}, m.Genres)
		})
	}
}

func TestParseShow(t *testing.T) {
	data := []byte(`<tvshow>
  <title>The Wire</title>
  <plot>Baltimore.</plot>
  <uniqueid type="tvdb">79126</uniqueid>
</tvshow>`)

	m, err := NewParser().ParseShow(data)
	require.NoError(t, err)
	require.NotNil(t, m.Title)
	assert.Equal(t, "The Wire", *m.Title)
	assert.Equal(t, "79126", m.UniqueIDs["tvdb"])
}

func TestParseEpisodes_Single(t *testing.T) {
	data := []byte(`<episodedetails>
  <title>The Target</title>
  <showtitle>The Wire</showtitle>
  <season>1</season>
  <episode>1</episode>
  <aired>2002-06-02</aired>
</episodedetails>`)

	episodes, err := NewParser().ParseEpisodes(data)
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	ep := episodes[0]
	require.NotNil(t, ep.Title)
	assert.Equal(t, "The Target", *ep.Title)
	require.NotNil(t, ep.Season)
	assert.Equal(t, 1, *ep.Season)
	require.NotNil(t, ep.Episode)
	assert.Equal(t, 1, *ep.Episode)
	require.NotNil(t, ep.Aired)
	assert.Equal(t, "2002-06-02", *ep.Aired)
}

func TestParseEpisodes_RepeatedRoots(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<episodedetails><title>Part One</title><episode>1</episode></episodedetails>
<episodedetails><title>Part Two</title><episode>2</episode></episodedetails>`)

	episodes, err := NewParser().ParseEpisodes(data)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "Part One", *episodes[0].Title)
	assert.Equal(t, "Part Two", *episodes[1].Title)
}

func TestParseEpisodes_MultiEpisodeContainer(t *testing.T) {
	data := []byte(`<multiepisodenfo>
  <episodedetails><title>Part One</title><episode>1</episode></episodedetails>
  <episodedetails><title>Part Two</title><episode>2</episode></episodedetails>
</multiepisodenfo>`)

	episodes, err := NewParser().ParseEpisodes(data)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, 1, *episodes[0].Episode)
	assert.Equal(t, 2, *episodes[1].Episode)
}

func TestParseEpisodes_WrongRoot(t *testing.T) {
	_, err := NewParser().ParseEpisodes([]byte(`<movie><title>Heat</title></movie>`))
	assert.ErrorIs(t, err, ErrWrongRoot)
}
