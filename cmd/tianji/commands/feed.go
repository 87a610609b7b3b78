package commands

import (
	"github.com/tianji-quant/tianji/internal/feed"
	"github.com/tianji-quant/tianji/pkg/config"
	"github.com/tianji-quant/tianji/pkg/database"
	"github.com/tianji-quant/tianji/pkg/logger"
)

// openFeed selects the data source for read-side commands: the JSONL exports
// by default, PostgreSQL on request. The returned cleanup is always safe to
// defer.
func openFeed(cfg *config.Config, log *logger.Logger, usePostgres bool, dataFile, signalsFile string) (feed.Feed, func(), error) {
	if usePostgres {
		db, err := database.New(cfg)
		if err != nil {
			return nil, func() {}, err
		}
		log.Info("Loading from PostgreSQL")
		return feed.NewRepository(db), db.Close, nil
	}

	log.WithFields(map[string]interface{}{
		"prices":  dataFile,
		"signals": signalsFile,
	}).Info("Loading from JSONL exports")
	mf, err := feed.LoadJSONL(dataFile, signalsFile)
	if err != nil {
		return nil, func() {}, err
	}
	return mf, func() {}, nil
}
