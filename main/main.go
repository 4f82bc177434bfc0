package main

import (
	"flag"
	"os"
	"time"

	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/ryogrid/SamehadaWAL/lib/samehada"
	"github.com/ryogrid/SamehadaWAL/lib/storage/access"
	"github.com/ryogrid/SamehadaWAL/main/signal_handle"
	"github.com/sirupsen/logrus"
)

var logger = common.ComponentLogger("demo")

// seeds accounts when they are absent. values survive restarts through log and data files
func seedAccounts(db *samehada.SamehadaDB) error {
	return db.RunTxn(func(txn *access.Transaction) error {
		for key, val := range map[string]string{"alice": "1000", "bob": "500"} {
			_, ok, err := txn.Read("accounts", key)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			if err := txn.Insert("accounts", key, val); err != nil {
				return err
			}
		}
		return nil
	})
}

func runIsolationScenario(db *samehada.SamehadaDB) error {
	txn1 := db.Begin()
	txn2 := db.Begin()

	aliceFromTxn1, _, err := txn1.Read("accounts", "alice")
	if err != nil {
		return err
	}
	aliceFromTxn2, _, err := txn2.Read("accounts", "alice")
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"txn1": aliceFromTxn1, "txn2": aliceFromTxn2}).Info("alice's balance before update")

	if err = txn1.Update("accounts", "alice", aliceFromTxn1, "1200"); err != nil {
		return err
	}
	aliceFromTxn1, _, _ = txn1.Read("accounts", "alice")
	aliceFromTxn2, _, _ = txn2.Read("accounts", "alice")
	// txn2 can't see uncommitted update of txn1
	logger.WithFields(logrus.Fields{"txn1": aliceFromTxn1, "txn2": aliceFromTxn2}).Info("alice's balance after uncommitted update")

	if err = txn1.Commit(); err != nil {
		return err
	}
	aliceFromTxn2, _, _ = txn2.Read("accounts", "alice")
	logger.WithField("txn2", aliceFromTxn2).Info("alice's balance after commit of txn1")

	if err = txn2.Update("accounts", "bob", "500", "1500"); err != nil {
		return err
	}
	return txn2.Commit()
}

func runRollbackScenario(db *samehada.SamehadaDB) error {
	txn := db.Begin()
	original, _, err := txn.Read("accounts", "alice")
	if err != nil {
		return err
	}
	if err = txn.Update("accounts", "alice", original, "1500"); err != nil {
		return err
	}
	if err = txn.Insert("users", "user789", "Test User"); err != nil {
		return err
	}
	tmp, _, _ := txn.Read("accounts", "alice")
	logger.WithField("alice", tmp).Info("temporary balance in transaction. rolling back")
	if err = txn.Rollback(); err != nil {
		return err
	}

	alice, _ := db.Get("accounts", "alice")
	_, userExists := db.Get("users", "user789")
	logger.WithFields(logrus.Fields{"alice": alice, "user789_exists": userExists}).Info("state after rollback")
	return nil
}

func main() {
	config := common.DefaultConfig()
	flag.StringVar(&config.LogFilePath, "log", config.LogFilePath, "log file path")
	flag.StringVar(&config.DataFilePath, "data", config.DataFilePath, "data file path")
	flag.StringVar(&config.PebbleDir, "pebble-dir", config.PebbleDir, "pebble directory (pebble backend)")
	usePebble := flag.Bool("pebble", false, "use pebble as page storage")
	flag.DurationVar(&config.CheckpointInterval, "checkpoint-interval", common.DefaultCheckpointInterval, "periodic checkpoint interval (0 disables)")
	scenario := flag.String("scenario", "isolation", "demo scenario: isolation or rollback")
	wait := flag.Duration("wait", 12*time.Second, "time to wait before shutdown")
	flag.Parse()
	if *usePebble {
		config.StorageBackend = common.StorageBackendPebble
	}

	logger.Info("=== WAL (Write-Ahead Log) demo ===")
	// recovery runs in this
	db, err := samehada.NewSamehadaDB(config)
	if err != nil {
		logger.WithError(err).Error("failed to start")
		os.Exit(1)
	}
	logger.Info("initial state")
	db.PrintContents()

	exitNotifyCh := make(chan bool, 1)
	doneCh := make(chan struct{})
	go signal_handle.SignalHandlerTh(db, exitNotifyCh, doneCh)

	err = seedAccounts(db)
	if err == nil {
		switch *scenario {
		case "rollback":
			err = runRollbackScenario(db)
		default:
			err = runIsolationScenario(db)
		}
	}
	if err != nil {
		logger.WithError(err).Error("scenario failed")
	}

	// wait to see periodic checkpoint in action
	select {
	case <-exitNotifyCh:
		return
	case <-time.After(*wait):
	}
	close(doneCh)
	if signal_handle.IsStopped() {
		<-exitNotifyCh
		return
	}

	logger.Info("final state")
	db.PrintContents()
	db.Shutdown()
}
