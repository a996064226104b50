// Command csv-to-parquet is the Lambda function that converts CSV files
// landing under raw/ into Parquet files under staging/.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"volt-data/config"
	"volt-data/convert"
	"volt-data/logging"
	"volt-data/s3store"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.FromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	awsCfg, err := s3store.LoadAWSConfig(context.Background(), cfg.AWS)
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}
	handler := convert.NewHandler(s3store.NewS3Client(awsCfg, cfg.S3.Endpoint), logger)

	logger.Info("csv-to-parquet handler initialized")
	lambda.Start(handler.Handle)
}
