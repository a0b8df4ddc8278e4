package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/service/analysis"
)

var suspectOpts struct {
	Name    string
	Crime   string
	Photo   string
	Station string
}

var suspectCmd = &cobra.Command{
	Use:   "suspect",
	Short: "Manage suspects known to the analysis backend",
}

var suspectAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Upload a suspect photo to the analysis backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		suspect := model.Suspect{
			Name:    suspectOpts.Name,
			Crime:   suspectOpts.Crime,
			Station: suspectOpts.Station,
		}
		if suspect.Station == "" {
			suspect.Station = cfgSvc.GetStationName()
		}

		if suspectOpts.Photo != "" {
			photo, err := os.ReadFile(suspectOpts.Photo)
			if err != nil {
				return xerrors.Errorf("reading photo: %w", err)
			}
			suspect.Photo = photo
			suspect.PhotoName = filepath.Base(suspectOpts.Photo)
		}

		if err := validator.New().Struct(suspect); err != nil {
			return xerrors.Errorf("invalid suspect: %w", err)
		}

		if err := analysis.NewHTTP(cfgSvc).UploadSuspect(cmd.Context(), suspect); err != nil {
			return err
		}

		fmt.Printf("Suspect %s uploaded successfully\n", suspect.Name)
		return nil
	},
}

func init() {
	suspectAddCmd.Flags().StringVar(&suspectOpts.Name, "name", "", "suspect name")
	suspectAddCmd.Flags().StringVar(&suspectOpts.Crime, "crime", "", "crime the suspect is wanted for")
	suspectAddCmd.Flags().StringVar(&suspectOpts.Photo, "photo", "", "path to the suspect photo")
	suspectAddCmd.Flags().StringVar(&suspectOpts.Station, "station", "", "police station (default: STATION_NAME)")

	suspectCmd.AddCommand(suspectAddCmd)
	rootCmd.AddCommand(suspectCmd)
}
