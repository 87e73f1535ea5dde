// Package mongo implements library.Store on MongoDB.
//
// Artist catalogs and cached-song sets are arrays on the artist document;
// every change to them is a single conditional update or an update pipeline,
// so concurrent workers never overwrite each other's additions. Pipeline
// updates need MongoDB 4.2 or newer.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jfmyers9/lyricqueue/internal/library"
)

const (
	artistsCollection = "artists"
	songsCollection   = "songs"

	connectTimeout = 10 * time.Second
)

// Store is a library.Store backed by MongoDB
type Store struct {
	client  *mongo.Client
	artists *mongo.Collection
	songs   *mongo.Collection
}

var _ library.Store = (*Store)(nil)

// Open connects to uri, verifies the connection and ensures indexes on the
// named database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:  client,
		artists: db.Collection(artistsCollection),
		songs:   db.Collection(songsCollection),
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't create indexes: %w", err)
	}
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.songs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "scrapingStatus", Value: 1}},
	})
	if err != nil {
		return err
	}
	_, err = s.artists.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "externalId", Value: 1}},
	})
	return err
}

// Close disconnects the client
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes both collections. Used by tests against a scratch database.
func (s *Store) Drop(ctx context.Context) error {
	return s.artists.Database().Drop(ctx)
}

func (s *Store) CreateArtist(ctx context.Context, a library.Artist) (bool, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	doc := fromArtist(a)

	res, err := s.artists.UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert artist: %w", err)
	}
	return res.UpsertedCount == 1, nil
}

func (s *Store) GetArtist(ctx context.Context, id string) (*library.Artist, error) {
	var doc artistDoc
	err := s.artists.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("artist %q: %w", id, library.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query artist: %w", err)
	}
	a := doc.toArtist()
	return &a, nil
}

func (s *Store) ListArtists(ctx context.Context) ([]library.Artist, error) {
	cursor, err := s.artists.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer cursor.Close(ctx)

	var artists []library.Artist
	for cursor.Next(ctx) {
		var doc artistDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode artist: %w", err)
		}
		artists = append(artists, doc.toArtist())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artists: %w", err)
	}
	return artists, nil
}

func (s *Store) artistExists(ctx context.Context, id string) (bool, error) {
	n, err := s.artists.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to query artist: %w", err)
	}
	return n > 0, nil
}

func (s *Store) SaveCatalogPage(ctx context.Context, artistID string, page library.CatalogPage) (*library.PageResult, error) {
	ok, err := s.artistExists(ctx, artistID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("artist %q: %w", artistID, library.ErrNotFound)
	}

	now := page.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}

	ids := make([]string, 0, len(page.Songs))
	models := make([]mongo.WriteModel, 0, len(page.Songs))
	for _, song := range page.Songs {
		if song.ID == "" {
			continue
		}
		ids = append(ids, song.ID)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": song.ID}).
			SetUpdate(bson.M{"$setOnInsert": newSongDoc(song, now)}).
			SetUpsert(true))
	}

	if len(models) > 0 {
		if _, err := s.songs.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return nil, fmt.Errorf("failed to upsert songs: %w", err)
		}
	}

	var out struct {
		TotalSongs    int  `bson:"totalSongs"`
		IsFullyCached bool `bson:"isFullyCached"`
	}
	err = s.artists.FindOneAndUpdate(ctx,
		bson.M{"_id": artistID},
		catalogPipeline(library.DedupeIDs(ids), page, now),
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"totalSongs": 1, "isFullyCached": 1}),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("artist %q: %w", artistID, library.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update artist catalog: %w", err)
	}

	return &library.PageResult{TotalSongs: out.TotalSongs, IsFullyCached: out.IsFullyCached}, nil
}

// noCeiling stands in for an unset MaxSongs in the $slice stage.
const noCeiling = 1 << 30

// catalogPipeline appends the ids not already in songIds, keeps the array
// within the ceiling and recomputes the progress fields from the result.
func catalogPipeline(ids []string, page library.CatalogPage, now time.Time) mongo.Pipeline {
	ceiling := page.MaxSongs
	if ceiling <= 0 {
		ceiling = noCeiling
	}

	existing := bson.M{"$ifNull": bson.A{"$songIds", bson.A{}}}
	fresh := bson.M{"$filter": bson.M{
		"input": bson.M{"$literal": ids},
		"as":    "id",
		"cond":  bson.M{"$not": bson.A{bson.M{"$in": bson.A{"$$id", existing}}}},
	}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"songIds": bson.M{"$slice": bson.A{
				bson.M{"$concatArrays": bson.A{existing, fresh}},
				ceiling,
			}},
		}}},
		{{Key: "$set", Value: bson.M{
			"totalSongs":       bson.M{"$size": "$songIds"},
			"songsFetched":     page.SongsFetched,
			"songsLastUpdated": now,
			"isFullyCached": bson.M{"$or": bson.A{
				!page.HasMore,
				bson.M{"$gte": bson.A{bson.M{"$size": "$songIds"}, ceiling}},
			}},
		}}},
	}
}

func (s *Store) SetArtistImage(ctx context.Context, artistID string, status library.ImageStatus, url string) error {
	res, err := s.artists.UpdateOne(ctx,
		bson.M{"_id": artistID},
		bson.M{"$set": bson.M{"imageStatus": status.String(), "imageUrl": url}},
	)
	if err != nil {
		return fmt.Errorf("failed to update artist image: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("artist %q: %w", artistID, library.ErrNotFound)
	}
	return nil
}

func (s *Store) GetSong(ctx context.Context, id string) (*library.Song, error) {
	var doc songDoc
	err := s.songs.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("song %q: %w", id, library.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query song: %w", err)
	}
	return doc.toSong(), nil
}

func (s *Store) GetSongs(ctx context.Context, ids []string) (map[string]*library.Song, error) {
	ids = library.DedupeIDs(ids)
	songs := make(map[string]*library.Song, len(ids))
	if len(ids) == 0 {
		return songs, nil
	}

	cursor, err := s.songs.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc songDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode song: %w", err)
		}
		songs[doc.ID] = doc.toSong()
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating songs: %w", err)
	}
	return songs, nil
}

// settledStatuses are the stored statuses that do not read as pending.
var settledStatuses = bson.A{
	library.StatusScraping.String(),
	library.StatusCompleted.String(),
	library.StatusFailed.String(),
	library.StatusPermanentlyFailed.String(),
}

// claimFilter matches the song only while it is still in the seen state.
// Pending matches anything toSong reads as pending: the literal, a missing
// field from documents written before scraping existed, or an unknown value.
func claimFilter(songID string, seen library.ScrapeClaim) bson.M {
	filter := bson.M{"_id": songID}

	if seen.Status == library.StatusPending {
		filter["scrapingStatus"] = bson.M{"$nin": settledStatuses}
	} else {
		filter["scrapingStatus"] = seen.Status.String()
	}

	if seen.Attempts == 0 {
		filter["scrapingAttempts"] = bson.M{"$in": bson.A{0, nil}}
	} else {
		filter["scrapingAttempts"] = seen.Attempts
	}
	return filter
}

func (s *Store) ClaimScrape(ctx context.Context, songID string, seen library.ScrapeClaim, at time.Time) (bool, error) {
	res, err := s.songs.UpdateOne(ctx,
		claimFilter(songID, seen),
		bson.M{
			"$set": bson.M{"scrapingStatus": library.StatusScraping.String(), "scrapingStartedAt": at},
			"$inc": bson.M{"scrapingAttempts": 1},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim song: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (s *Store) CompleteScrape(ctx context.Context, songID, lyrics string, at time.Time) error {
	res, err := s.songs.UpdateOne(ctx,
		bson.M{"_id": songID},
		bson.M{
			"$set": bson.M{
				"lyrics":          lyrics,
				"scrapingStatus":  library.StatusCompleted.String(),
				"lyricsScrapedAt": at,
			},
			"$unset": bson.M{"scrapingError": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to store lyrics: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("song %q: %w", songID, library.ErrNotFound)
	}
	return nil
}

func (s *Store) FailScrape(ctx context.Context, songID string, status library.ScrapingStatus, message string) error {
	res, err := s.songs.UpdateOne(ctx,
		bson.M{"_id": songID},
		bson.M{"$set": bson.M{"scrapingStatus": status.String(), "scrapingError": message}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark song failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("song %q: %w", songID, library.ErrNotFound)
	}
	return nil
}

func (s *Store) AddCachedSong(ctx context.Context, artistID, songID string) (bool, error) {
	return s.changeCachedSong(ctx, artistID,
		bson.M{"_id": artistID, "cachedSongIds": bson.M{"$ne": songID}},
		bson.M{
			"$addToSet": bson.M{"cachedSongIds": songID},
			"$inc":      bson.M{"lyricsScraped": 1},
		},
	)
}

func (s *Store) RemoveCachedSong(ctx context.Context, artistID, songID string) (bool, error) {
	return s.changeCachedSong(ctx, artistID,
		bson.M{"_id": artistID, "cachedSongIds": songID},
		bson.M{
			"$pull": bson.M{"cachedSongIds": songID},
			"$inc":  bson.M{"lyricsScraped": -1},
		},
	)
}

// changeCachedSong runs a set update whose filter only matches when the set
// change would take effect, so the counter moves with it or not at all.
func (s *Store) changeCachedSong(ctx context.Context, artistID string, filter, update bson.M) (bool, error) {
	res, err := s.artists.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update cached songs: %w", err)
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}

	ok, err := s.artistExists(ctx, artistID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("artist %q: %w", artistID, library.ErrNotFound)
	}
	return false, nil
}
